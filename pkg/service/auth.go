// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package service

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/AccelByte/extend-relay-match/pkg/session"

	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/factory"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/iam"
	sdkAuth "github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/utils/auth"
	"github.com/sirupsen/logrus"
)

// ClientLoginer performs an OAuth client-credentials login.
// *iam.OAuth20Service satisfies it.
type ClientLoginer interface {
	LoginClient(clientId, clientSecret *string) error
}

type IAMAuthServiceConfig struct {
	ClientID     string
	ClientSecret string
}

// IAMAuthService signs the host or guest in to AccelByte IAM before any
// relay call. It implements session.AuthService.
type IAMAuthService struct {
	loginer ClientLoginer
	cfg     IAMAuthServiceConfig
}

func NewIAMAuthService(loginer ClientLoginer, cfg IAMAuthServiceConfig) *IAMAuthService {
	return &IAMAuthService{
		loginer: loginer,
		cfg:     cfg,
	}
}

// NewOAuthService builds the IAM client from the SDK's environment-backed
// config repository. The token repository is shared so other SDK services
// reuse the session.
func NewOAuthService(configRepo *sdkAuth.ConfigRepositoryImpl, tokenRepo *sdkAuth.TokenRepositoryImpl) *iam.OAuth20Service {
	return &iam.OAuth20Service{
		Client:                 factory.NewIamClient(configRepo),
		ConfigRepository:       configRepo,
		TokenRepository:        tokenRepo,
		RefreshTokenRepository: &sdkAuth.RefreshTokenImpl{AutoRefresh: true, RefreshRate: 0.8},
	}
}

// SignInAnonymously logs in with the service's client credentials. The SDK
// call is not cancellable, so ctx only bounds how long we wait for it.
func (s *IAMAuthService) SignInAnonymously(ctx context.Context) error {
	clientID := s.cfg.ClientID
	clientSecret := s.cfg.ClientSecret

	result := make(chan error, 1)
	go func() {
		result <- s.loginer.LoginClient(&clientID, &clientSecret)
	}()

	select {
	case err := <-result:
		if err != nil {
			return classifyLoginError(err)
		}
		logrus.Debugf("signed in to AccelByte IAM as client %s", clientID)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// classifyLoginError keeps network failures retryable and treats anything
// IAM itself rejected as an auth failure.
func classifyLoginError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("unable to reach IAM: %w", err)
	}
	return &session.Error{Kind: session.KindAuthFailure, Err: fmt.Errorf("unable to login using clientId and clientSecret: %w", err)}
}

// NoopAuthService skips sign-in for local development against a private
// Redis relay.
type NoopAuthService struct{}

func (NoopAuthService) SignInAnonymously(context.Context) error { return nil }
