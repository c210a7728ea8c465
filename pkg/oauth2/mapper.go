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

package oauth2

import (
	"context"
	sq "github.com/Masterminds/squirrel"
	"github.com/oysterpack/synapse/pkg/fx/db"
	"github.com/oysterpack/synapse/pkg/mapper"
	"github.com/pkg/errors"
)

// AccessTokenMapper maps access tokens, and implements all of the mapper traits
type AccessTokenMapper struct {
	*mapper.Mapper[*AccessToken]
}

// NewAccessTokenMapper constructs a new AccessTokenMapper
func NewAccessTokenMapper(handle *db.Handle) *AccessTokenMapper {
	return &AccessTokenMapper{mapper.New(handle, AccessTokensTable, func() *AccessToken { return new(AccessToken) })}
}

// FindByAccessToken looks up the token. mapper.ErrNotFound is returned if it does not exist.
func (m *AccessTokenMapper) FindByAccessToken(ctx context.Context, accessToken string) (*AccessToken, error) {
	return m.FindBy(ctx, sq.Eq{"access_token": accessToken})
}

// RefreshTokenMapper maps refresh tokens. Only the Finder trait is exposed. Updates are keyed by the refresh token.
type RefreshTokenMapper struct {
	tokens *mapper.Mapper[*RefreshToken]
}

// NewRefreshTokenMapper constructs a new RefreshTokenMapper
func NewRefreshTokenMapper(handle *db.Handle) *RefreshTokenMapper {
	return &RefreshTokenMapper{mapper.New(handle, RefreshTokensTable, func() *RefreshToken { return new(RefreshToken) })}
}

// Table returns the table name
func (m *RefreshTokenMapper) Table() string {
	return m.tokens.Table()
}

// FindBy implements mapper.Finder
func (m *RefreshTokenMapper) FindBy(ctx context.Context, where sq.Eq) (*RefreshToken, error) {
	return m.tokens.FindBy(ctx, where)
}

// FindAllBy implements mapper.Finder
func (m *RefreshTokenMapper) FindAllBy(ctx context.Context, where sq.Eq, orderBy ...string) ([]*RefreshToken, error) {
	return m.tokens.FindAllBy(ctx, where, orderBy...)
}

// Update saves the token, matching the row by its refresh token. mapper.ErrNotFound is returned if no row matches.
func (m *RefreshTokenMapper) Update(ctx context.Context, token *RefreshToken) error {
	if token.RefreshToken == "" {
		return errors.New("refresh token is required")
	}
	n, err := m.tokens.Update(ctx, token, sq.Eq{"refresh_token": token.RefreshToken})
	if err != nil {
		return err
	}
	if n == 0 {
		return mapper.ErrNotFound
	}
	return nil
}
