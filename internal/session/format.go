package session

import (
	"fmt"

	"github.com/Alias1177/FraudShield/models"
)

// SampleConversation is offered by the "Load Sample" action
const SampleConversation = "Hi, this is Amit from India Post. He said your package is arriving today. " +
	"Meanwhile, this is Priya from your bank. She said to send your PIN and card number now."

// FormatResult is the plain-text summary put on the clipboard
func FormatResult(r models.PredictionResult) string {
	return fmt.Sprintf("Label: %s\nConfidence: %s\nFraud Probability: %s\nNot Fraud Probability: %s",
		r.Label, models.Percent(r.Confidence), models.Percent(r.FraudProb), models.Percent(r.NotFraudProb))
}

// FeedbackMessage acknowledges the user's verdict on a prediction
func FeedbackMessage(correct bool) string {
	if correct {
		return "Thank you! Prediction marked as correct."
	}
	return "Thank you! Prediction marked as incorrect."
}
