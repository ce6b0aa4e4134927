// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package mock

import (
	"sync"
)

// ClientLoginer is a mock implementation of service.ClientLoginer for testing
type ClientLoginer struct {
	// LoginClientFunc is called when LoginClient is invoked
	LoginClientFunc func(clientID, clientSecret *string) error

	// Errors are returned in order, one per call, before falling back to DefaultError
	Errors       []error
	DefaultError error

	// Call tracking
	mu    sync.Mutex
	Calls []LoginClientCall
}

// LoginClientCall tracks parameters for LoginClient calls
type LoginClientCall struct {
	ClientID     string
	ClientSecret string
}

// LoginClient records the call and returns the next queued error
func (m *ClientLoginer) LoginClient(clientID, clientSecret *string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, LoginClientCall{ClientID: *clientID, ClientSecret: *clientSecret})
	var err error
	if len(m.Errors) > 0 {
		err, m.Errors = m.Errors[0], m.Errors[1:]
	} else {
		err = m.DefaultError
	}
	fn := m.LoginClientFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(clientID, clientSecret)
	}
	return err
}

// CallCount returns how many times LoginClient was invoked
func (m *ClientLoginer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
