// Package notify delivers availability notifications for slotwatch.
//
// A notification channel is selected by [Mode], a closed set of values
// parsed once at startup with [ParseMode]. [New] builds the matching
// [Notifier] and fails immediately on configuration problems such as an
// unknown mode or missing SMS credentials, so no site is ever checked with
// a notifier that cannot deliver.
//
//   - [LogNotifier]: logs the message that would have been sent
//   - [SMSNotifier]: sends the message as a text through the Twilio REST API
package notify
