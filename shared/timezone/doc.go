// Package timezone renders the timestamps sent to the booking backend and
// the payment page. They are always UTC with millisecond precision:
//
//	paidAt := timezone.ISO(submittedAt) // 2024-03-09T10:04:05.123Z
package timezone
