package models

import "context"

type Classifier interface {
	Submit(ctx context.Context, conversation string) (PredictionResult, error)
}
