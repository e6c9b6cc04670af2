package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/fcm"
	"go.uber.org/zap"
)

// FCMConfig selects the Firebase project and its service account.
type FCMConfig struct {
	ProjectID       string
	CredentialsFile string
	// Credentials takes precedence over CredentialsFile when set.
	Credentials []byte
	HTTPClient  *http.Client
}

// FCM sends through the waffle FCM client, one request per token.
type FCM struct {
	client *fcm.Client
	log    *zap.Logger
}

// NewFCM loads the service account and builds the client.
func NewFCM(cfg FCMConfig, logger *zap.Logger) (*FCM, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("push: fcm project id is required")
	}
	client, err := fcm.NewClient(fcm.Config{
		ProjectID:       cfg.ProjectID,
		Credentials:     cfg.Credentials,
		CredentialsFile: cfg.CredentialsFile,
		HTTPClient:      cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("push: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FCM{client: client, log: logger}, nil
}

// Send fans msg out to tokens. A cancelled context is returned as an error;
// provider rejections are counted in the Result.
func (f *FCM) Send(ctx context.Context, tokens []string, msg Message) (Result, error) {
	var res Result
	if len(tokens) == 0 {
		return res, nil
	}
	out, err := f.client.SendMulticast(ctx, &fcm.MulticastMessage{
		Tokens:       tokens,
		Notification: &fcm.Notification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	})
	if err != nil {
		return res, err
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	for i, r := range out.Results {
		switch {
		case r.Success:
			res.Sent++
		case unregistered(r.Error):
			res.Failed++
			res.Invalid = append(res.Invalid, tokens[i])
		default:
			res.Failed++
			f.log.Warn("fcm send failed", zap.Error(r.Error))
		}
	}
	return res, nil
}

// unregistered reports whether FCM rejected the token itself rather than
// the payload or the request.
func unregistered(err error) bool {
	if fcm.IsUnregistered(err) {
		return true
	}
	var fe *fcm.Error
	if !errors.As(err, &fe) {
		return false
	}
	if fe.Code == http.StatusNotFound {
		return true
	}
	return fe.Code == http.StatusBadRequest &&
		fe.Status == "INVALID_ARGUMENT" &&
		strings.Contains(strings.ToLower(fe.Message), "registration token")
}
