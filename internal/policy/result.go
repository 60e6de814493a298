package policy

// Result is the outcome of evaluating a push
type Result interface {
	isResult()
}

type resultAccepted struct{}
type resultRejected struct {
	Summary  string
	Messages []string
}

func (resultAccepted) isResult() {}
func (resultRejected) isResult() {}

// Accepted means every ref update complies with the policy
var Accepted Result = resultAccepted{}

// Rejected creates a Result carrying a summary and the ordered violation messages
func Rejected(summary string, messages []string) Result {
	return resultRejected{Summary: summary, Messages: messages}
}

// IsAccepted returns true if r is Accepted
func IsAccepted(r Result) bool {
	_, ok := r.(resultAccepted)
	return ok
}

// IsRejected returns true if r is Rejected
func IsRejected(r Result) bool {
	_, ok := r.(resultRejected)
	return ok
}

// GetRejection returns the summary and messages of a Rejected result, empty otherwise
func GetRejection(r Result) (string, []string) {
	if rejected, ok := r.(resultRejected); ok {
		return rejected.Summary, rejected.Messages
	}
	return "", nil
}
