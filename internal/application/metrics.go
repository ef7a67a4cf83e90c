package application

import "expvar"

// Counters published on /debug/vars
var (
	registrations = expvar.NewMap("auth_registrations")
	logins        = expvar.NewMap("auth_logins")
	otpIssued     = expvar.NewMap("auth_otp_issued")
	otpOutcomes   = expvar.NewMap("auth_otp_outcomes")
)
