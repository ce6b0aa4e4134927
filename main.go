// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package main

import (
	"context"

	"github.com/AccelByte/extend-relay-match/internal/app"
	"github.com/AccelByte/extend-relay-match/internal/config"
	"github.com/AccelByte/extend-relay-match/pkg/common"

	"github.com/sirupsen/logrus"
)

func main() {
	logrus.Infof("starting relay match service..")

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	if err := common.ConfigureLogging(cfg.LogLevel, cfg.JSONLogs()); err != nil {
		logrus.Fatalf("failed to configure logging: %v", err)
	}

	ctx := context.Background()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logrus.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		logrus.Fatalf("application error: %v", err)
	}
}
