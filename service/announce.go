package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Announcer registers the service with its engines, and withdraws it on shutdown
type Announcer struct {
	Client     *http.Client
	Engines    []string
	Retries    int           // Attempts per engine
	Delay      time.Duration // Time between attempts
	Descriptor Descriptor
	Logger     *slog.Logger
}

func (a *Announcer) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

func (a *Announcer) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// Announce posts the descriptor to every engine, and returns the engines that accepted it
func (a *Announcer) Announce(ctx context.Context) []string {
	body, err := json.Marshal(a.Descriptor)
	if err != nil {
		a.logger().Error("cannot encode service descriptor", "err", err)
		return nil
	}

	announced := []string{}
	for _, engine := range a.Engines {
		limiter := rate.NewLimiter(rate.Every(a.Delay), 1)
		ok := false
		for attempt := 1; attempt <= a.Retries && !ok; attempt++ {
			if err := limiter.Wait(ctx); err != nil {
				return announced
			}
			err := a.send(ctx, http.MethodPost, joinURL(engine, "services"), body)
			if err == nil {
				ok = true
				a.logger().Info("announced service", "engine", engine, "attempt", attempt)
			} else {
				a.logger().Debug("announcement failed", "engine", engine, "attempt", attempt, "err", err)
			}
		}
		if ok {
			announced = append(announced, engine)
		} else {
			a.logger().Warn(fmt.Sprintf("Aborting service announcement after %v retries", a.Retries), "engine", engine)
		}
	}
	return announced
}

// Withdraw removes the service from every engine. Failures are logged and otherwise ignored.
func (a *Announcer) Withdraw(ctx context.Context) {
	for _, engine := range a.Engines {
		err := a.send(ctx, http.MethodDelete, joinURL(engine, "services", url.PathEscape(a.Descriptor.Slug)), nil)
		if err != nil {
			a.logger().Warn("cannot withdraw service", "engine", engine, "err", err)
		} else {
			a.logger().Info("withdrew service", "engine", engine)
		}
	}
}

func (a *Announcer) send(ctx context.Context, method, target string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%v %v: %v", method, target, resp.Status)
	}
	return nil
}

func joinURL(base string, parts ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}
