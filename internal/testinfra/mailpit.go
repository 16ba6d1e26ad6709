// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultMailpitImage is an SMTP sink with an HTTP API.
	DefaultMailpitImage = "axllent/mailpit:latest"

	mailpitSMTPPort = "1025"
	mailpitHTTPPort = "8025"
)

// MailpitContainer captures mail sent over SMTP. Received messages are
// listed at APIURL + "/api/v1/messages".
type MailpitContainer struct {
	testcontainers.Container
	SMTPHost string
	SMTPPort int
	APIURL   string
}

// NewMailpitContainer starts Mailpit accepting unauthenticated SMTP.
func NewMailpitContainer(ctx context.Context) (*MailpitContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        DefaultMailpitImage,
		ExposedPorts: []string{mailpitSMTPPort + "/tcp", mailpitHTTPPort + "/tcp"},
		Env: map[string]string{
			"MP_SMTP_AUTH_ACCEPT_ANY":     "1",
			"MP_SMTP_AUTH_ALLOW_INSECURE": "1",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(mailpitSMTPPort+"/tcp"),
			wait.ForHTTP("/livez").WithPort(mailpitHTTPPort+"/tcp"),
		).WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create mailpit container: %w", err)
	}

	host, smtpPort, err := hostPort(ctx, container, mailpitSMTPPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("resolve mailpit smtp address: %w", err)
	}
	_, httpPort, err := hostPort(ctx, container, mailpitHTTPPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("resolve mailpit http address: %w", err)
	}
	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("parse mailpit smtp port: %w", err)
	}

	return &MailpitContainer{
		Container: container,
		SMTPHost:  host,
		SMTPPort:  port,
		APIURL:    fmt.Sprintf("http://%s:%s", host, httpPort),
	}, nil
}
