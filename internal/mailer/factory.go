package mailer

import (
	"context"
	"fmt"

	"github.com/unclebandit/coldmail-backend/internal/config"
	"github.com/unclebandit/coldmail-backend/internal/logger"
)

// New builds the transport selected by cfg.Provider
func New(ctx context.Context, cfg config.MailConfig, log *logger.Logger) (Transport, error) {
	log = log.WithComponent("mailer")

	switch cfg.Provider {
	case "gmail":
		log.Info().Str("sender", cfg.SenderAddress).Msg("using gmail transport")
		return NewGmail(ctx, GmailConfig{
			ClientID:      cfg.Gmail.ClientID,
			ClientSecret:  cfg.Gmail.ClientSecret,
			RefreshToken:  cfg.Gmail.RefreshToken,
			SenderAddress: cfg.SenderAddress,
			SenderName:    cfg.SenderName,
		})
	case "resend":
		log.Info().Str("sender", cfg.SenderAddress).Msg("using resend transport")
		return NewResend(ResendConfig{
			APIKey:        cfg.Resend.APIKey,
			SenderAddress: cfg.SenderAddress,
			SenderName:    cfg.SenderName,
		}), nil
	case "smtp":
		if cfg.SMTP.SkipTLSVerify {
			log.Warn().Msg("TLS certificate verification is disabled for smtp")
		}
		log.Info().Str("host", cfg.SMTP.Host).Int("port", cfg.SMTP.Port).Msg("using smtp transport")
		return NewSMTP(SMTPConfig{
			Host:          cfg.SMTP.Host,
			Port:          cfg.SMTP.Port,
			Username:      cfg.SMTP.Username,
			Password:      cfg.SMTP.Password,
			SkipTLSVerify: cfg.SMTP.SkipTLSVerify,
			SenderAddress: cfg.SenderAddress,
			SenderName:    cfg.SenderName,
		}), nil
	case "simulated", "":
		log.Warn().Msg("using simulated mail transport; nothing will be delivered")
		return NewSimulated(), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}
