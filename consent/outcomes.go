package consent

import "net/url"

// Outcome is the result of one pass through the authorize state machine.
// It is one of OutcomeLogin, OutcomeConsent, OutcomeDenied or OutcomeRedirect.
type Outcome interface {
	outcome()
}

// OutcomeLogin asks the user to log in. CallbackURI is the encoded authorize
// request to return to, stripped of consent actions.
type OutcomeLogin struct {
	CallbackURI string
}

// OutcomeConsent asks the user to approve the client. Params are the authorize
// parameters the consent form must send back along with CSRFToken and a decision.
type OutcomeConsent struct {
	CSRFToken  string
	ClientName string
	Email      string
	Scopes     []string // human readable
	Params     url.Values
}

// OutcomeDenied is the end of a flow the user declined. No code was issued.
type OutcomeDenied struct {
	ClientName string
	Email      string
}

// OutcomeRedirect sends the browser back to the client with a code.
type OutcomeRedirect struct {
	Location string
}

func (OutcomeLogin) outcome()    {}
func (OutcomeConsent) outcome()  {}
func (OutcomeDenied) outcome()   {}
func (OutcomeRedirect) outcome() {}
