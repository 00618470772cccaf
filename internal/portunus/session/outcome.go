package session

type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeDigitAccepted
	OutcomeDigitRejected
	OutcomeCleared
	OutcomeInputLength // submitted code was not 4 digits
	OutcomeAdminEntered
	OutcomeAwaitingCredential
	OutcomeGranted
	OutcomeDenied // unknown card or wrong code; indistinguishable to the user
	OutcomeAdminAborted
	OutcomeCredentialCaptured
	OutcomeEnrolled
	OutcomeStorageFull
	OutcomeInvalidCredential
	OutcomeStorageError
)

var outcomeNames = [...]string{
	OutcomeIgnored:            "ignored",
	OutcomeDigitAccepted:      "digit_accepted",
	OutcomeDigitRejected:      "digit_rejected",
	OutcomeCleared:            "cleared",
	OutcomeInputLength:        "input_length",
	OutcomeAdminEntered:       "admin_entered",
	OutcomeAwaitingCredential: "awaiting_credential",
	OutcomeGranted:            "granted",
	OutcomeDenied:             "denied",
	OutcomeAdminAborted:       "admin_aborted",
	OutcomeCredentialCaptured: "credential_captured",
	OutcomeEnrolled:           "enrolled",
	OutcomeStorageFull:        "storage_full",
	OutcomeInvalidCredential:  "invalid_credential",
	OutcomeStorageError:       "storage_error",
}

func (o Outcome) String() string {
	if int(o) >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}
