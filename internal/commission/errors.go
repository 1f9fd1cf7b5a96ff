package commission

import "errors"

// Sentinels for the commission error taxonomy. Match with errors.Is.
var (
	ErrInvalidReferralCode = errors.New("invalid referral code")
	ErrReferrerNotEligible = errors.New("referrer not eligible")
	ErrConfiguration       = errors.New("commission configuration error")
	ErrPersistence         = errors.New("commission persistence error")
)

// Error codes reported to callers.
const (
	CodeInvalidReferralCode = "INVALID_REFERRAL_CODE"
	CodeReferrerNotEligible = "REFERRER_NOT_ELIGIBLE"
	CodeConfiguration       = "CONFIGURATION_ERROR"
	CodePersistence         = "PERSISTENCE_ERROR"
)

// Error is returned by Engine.ProcessPurchase. It unwraps to the underlying
// cause and matches the sentinel for its code.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code
	}
	return e.Code + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidReferralCode:
		return e.Code == CodeInvalidReferralCode
	case ErrReferrerNotEligible:
		return e.Code == CodeReferrerNotEligible
	case ErrConfiguration:
		return e.Code == CodeConfiguration
	case ErrPersistence:
		return e.Code == CodePersistence
	}
	return false
}

// Recoverable reports whether err is a missed-commission condition that must
// not block the purchase (unknown code or ineligible referrer).
func Recoverable(err error) bool {
	return errors.Is(err, ErrInvalidReferralCode) || errors.Is(err, ErrReferrerNotEligible)
}

// ErrorCode returns the taxonomy code carried by err, or "" if none.
func ErrorCode(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
