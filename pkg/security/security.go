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

// Package security provides access to the current user via the security context.
package security

// Token is the authentication token
type Token interface {
	// User returns nil if the token is not bound to a user
	User() interface{}
}

// Context holds the current authentication token
type Context interface {
	// Token returns nil if there is no authentication
	Token() Token
}

// Aware is embedded by components that need the current user
type Aware struct {
	security Context
}

// SetSecurityContext sets the security context
func (a *Aware) SetSecurityContext(security Context) {
	a.security = security
}

// SecurityContext returns the security context
func (a *Aware) SecurityContext() Context {
	return a.security
}

// User returns the current user, or nil if there is no security context, no token, or the token carries no user.
func (a *Aware) User() interface{} {
	if a.security == nil {
		return nil
	}
	token := a.security.Token()
	if token == nil {
		return nil
	}
	return token.User()
}

// StaticContext is a Context that always returns the same token
type StaticContext struct {
	token Token
}

// NewStaticContext constructs a new StaticContext. The token may be nil.
func NewStaticContext(token Token) *StaticContext {
	return &StaticContext{token: token}
}

// Token implements Context
func (c *StaticContext) Token() Token {
	return c.token
}

// UserToken is a Token for a user
type UserToken struct {
	user interface{}
}

// NewUserToken constructs a new UserToken. The user may be nil.
func NewUserToken(user interface{}) UserToken {
	return UserToken{user: user}
}

// User implements Token
func (t UserToken) User() interface{} {
	return t.user
}
