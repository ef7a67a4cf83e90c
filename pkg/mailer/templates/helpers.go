package templates

import (
	"context"
	"strings"
	"time"

	"github.com/oksasatya/healthcare-identity/config"
)

const timeLayout = "02 January 2006, 15:04"

// Option pattern
type Option func(*EmailData)

func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format(timeLayout)
	}
}
func WithResetURL(url string) Option { return func(d *EmailData) { d.ResetURL = url } }
func WithCode(code string) Option    { return func(d *EmailData) { d.Code = code } }

func setLocation(d *EmailData, loc string) {
	if s := strings.TrimSpace(loc); s != "" {
		d.Location = s
	}
}

func WithLocation(loc string) Option {
	return func(d *EmailData) { setLocation(d, loc) }
}

func WithGeoFromIP(ctx context.Context, r GeoResolver, ip string) Option {
	return func(d *EmailData) {
		if r == nil || strings.TrimSpace(ip) == "" {
			return
		}
		if g, err := r.Lookup(ctx, ip); err == nil {
			setLocation(d, FormatGeo(g))
		}
	}
}

// WithExpiresAt sets the code expiry and the whole minutes left relative to the send time
func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		if t.IsZero() {
			return
		}
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format(timeLayout)
		if !d.TimeAt.IsZero() {
			if m := int(utc.Sub(d.TimeAt).Round(time.Minute) / time.Minute); m > 0 {
				d.TTLMinutes = m
			}
		}
	}
}

// NewBaseEmailData fills the branding fields from config, then applies opts
func NewBaseEmailData(cfg *config.Config, typ string, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: email,
		Type:           typ,

		CompanyName:    cfg.CompanyName,
		CompanyAddress: cfg.CompanyAddress,
		AppName:        cfg.AppName,

		LogoURL:        cfg.LogoURL,
		SupportURL:     cfg.SupportURL,
		PrivacyURL:     cfg.PrivacyURL,
		UnsubscribeURL: cfg.UnsubscribeURL,

		ResetURL:  cfg.ResetPasswordURL(),
		VerifyURL: cfg.VerifyEmailURL(),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewVerifyOTPData(cfg *config.Config, name, email, code string, opts ...Option) map[string]any {
	opts = append([]Option{WithCode(code)}, opts...)
	return ToMap(NewBaseEmailData(cfg, VerifyOTP, name, email, opts...))
}

func NewResetOTPData(cfg *config.Config, name, email, code, resetURL string, opts ...Option) map[string]any {
	opts = append([]Option{WithCode(code)}, opts...)
	if resetURL != "" {
		opts = append(opts, WithResetURL(resetURL))
	}
	return ToMap(NewBaseEmailData(cfg, ResetOTP, name, email, opts...))
}

func NewWelcomeData(cfg *config.Config, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(cfg, Welcome, name, email, opts...))
}
