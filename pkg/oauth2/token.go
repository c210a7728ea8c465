/*
 * Copyright (c) 2019 OysterPack, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package oauth2 maps the OAuth2 access and refresh tokens that are issued to clients.
package oauth2

import (
	"github.com/oysterpack/synapse/pkg/fx/db"
	"github.com/oysterpack/synapse/pkg/mapper"
	"golang.org/x/oauth2"
	"time"
)

// table names
const (
	AccessTokensTable  = "oauth_access_tokens"
	RefreshTokensTable = "oauth_refresh_tokens"
)

// Schema creates the token tables
var Schema = db.Schema{
	Name: "oauth_tokens",
	DDL: func(db.Driver) []string {
		return []string{
			`CREATE TABLE IF NOT EXISTS oauth_access_tokens (
				access_token VARCHAR(40) PRIMARY KEY,
				client_id    VARCHAR(80) NOT NULL,
				user_id      VARCHAR(255) NOT NULL DEFAULT '',
				expires      BIGINT,
				scope        VARCHAR(2000) NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS oauth_refresh_tokens (
				refresh_token VARCHAR(40) PRIMARY KEY,
				client_id     VARCHAR(80) NOT NULL,
				user_id       VARCHAR(255) NOT NULL DEFAULT '',
				expires       BIGINT,
				scope         VARCHAR(2000) NOT NULL DEFAULT ''
			)`,
		}
	},
}

// AccessToken is a row in the oauth_access_tokens table
type AccessToken struct {
	AccessToken string
	ClientID    string
	UserID      string
	Expires     mapper.Timestamp
	// Scope is a space delimited list
	Scope string
}

// Columns implements mapper.Entity
func (t *AccessToken) Columns() []string {
	return []string{"access_token", "client_id", "user_id", "expires", "scope"}
}

// DbValues implements mapper.Entity
func (t *AccessToken) DbValues() []interface{} {
	return []interface{}{t.AccessToken, t.ClientID, t.UserID, t.Expires, t.Scope}
}

// ScanTargets implements mapper.Entity
func (t *AccessToken) ScanTargets() []interface{} {
	return []interface{}{&t.AccessToken, &t.ClientID, &t.UserID, &t.Expires, &t.Scope}
}

// Expired returns true if the token expired before the specified time. A token with no expiry never expires.
func (t *AccessToken) Expired(now time.Time) bool {
	return !t.Expires.IsZero() && t.Expires.Before(now)
}

// OAuth2Token converts the access token into a bearer token. The scope is set as token extra data.
func (t *AccessToken) OAuth2Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   "Bearer",
		Expiry:      t.Expires.Time,
	}
	if t.Scope == "" {
		return token
	}
	return token.WithExtra(map[string]interface{}{"scope": t.Scope})
}

// RefreshToken is a row in the oauth_refresh_tokens table
type RefreshToken struct {
	RefreshToken string
	ClientID     string
	UserID       string
	Expires      mapper.Timestamp
	Scope        string
}

// Columns implements mapper.Entity
func (t *RefreshToken) Columns() []string {
	return []string{"refresh_token", "client_id", "user_id", "expires", "scope"}
}

// DbValues implements mapper.Entity
func (t *RefreshToken) DbValues() []interface{} {
	return []interface{}{t.RefreshToken, t.ClientID, t.UserID, t.Expires, t.Scope}
}

// ScanTargets implements mapper.Entity
func (t *RefreshToken) ScanTargets() []interface{} {
	return []interface{}{&t.RefreshToken, &t.ClientID, &t.UserID, &t.Expires, &t.Scope}
}

// Expired returns true if the token expired before the specified time. A token with no expiry never expires.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.Expires.IsZero() && t.Expires.Before(now)
}
