// Package gate decides who may generate an invoice: anonymous visitors get
// a small guest allowance, signed-in users must have paid.
package gate

import "net/http"

// Reason explains a Decision.
type Reason string

// Decision reasons.
const (
	ReasonGuest   Reason = "guest"   // anonymous, within the guest allowance
	ReasonPaid    Reason = "paid"    // signed in and paid
	ReasonLogin   Reason = "login"   // anonymous, allowance used up
	ReasonPayment Reason = "payment" // signed in, not paid
)

// Messages and redirects returned with a denial.
const (
	LoginMessage    = "Please sign up to continue generating invoices."
	LoginRedirect   = "/auth/login?next=/invoice"
	PaymentMessage  = "You need to subscribe to generate invoices."
	PaymentRedirect = "/subscribe"
)

// Identity is who is asking. An empty UserID means anonymous; ClientKey
// identifies anonymous clients (usually the client IP).
type Identity struct {
	UserID    string
	Email     string
	Paid      bool
	ClientKey string
}

// Authenticated reports whether the caller is signed in.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// Decision is the outcome of Check. Denials carry the HTTP status, a user
// message and where to send the user next. GuestRemaining is the allowance
// left after an allowed guest call.
type Decision struct {
	Allowed        bool
	Reason         Reason
	Status         int
	Message        string
	Redirect       string
	GuestRemaining int
}

// Gate applies the access rules.
type Gate struct {
	guests *GuestLimiter
}

// New returns a Gate using guests for anonymous callers.
// A nil limiter denies every anonymous caller.
func New(guests *GuestLimiter) *Gate {
	return &Gate{guests: guests}
}

// Check decides whether id may generate one invoice. An allowed anonymous
// call consumes guest allowance.
func (g *Gate) Check(id Identity) Decision {
	if !id.Authenticated() {
		if g.guests != nil && g.guests.Allow(id.ClientKey) {
			return Decision{
				Allowed:        true,
				Reason:         ReasonGuest,
				Status:         http.StatusOK,
				GuestRemaining: g.guests.Remaining(id.ClientKey),
			}
		}
		return Decision{
			Reason:   ReasonLogin,
			Status:   http.StatusForbidden,
			Message:  LoginMessage,
			Redirect: LoginRedirect,
		}
	}

	if !id.Paid {
		return Decision{
			Reason:   ReasonPayment,
			Status:   http.StatusPaymentRequired,
			Message:  PaymentMessage,
			Redirect: PaymentRedirect,
		}
	}
	return Decision{Allowed: true, Reason: ReasonPaid, Status: http.StatusOK}
}
