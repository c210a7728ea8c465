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

package security_test

import (
	"github.com/oysterpack/synapse/pkg/security"
	"github.com/stretchr/testify/assert"
	"testing"
)

type user struct {
	name string
}

type component struct {
	security.Aware
}

func TestAware_User(t *testing.T) {
	t.Parallel()
	var c component
	assert.Nil(t, c.User(), "no security context")

	c.SetSecurityContext(security.NewStaticContext(nil))
	assert.Nil(t, c.User(), "no token")

	c.SetSecurityContext(security.NewStaticContext(security.NewUserToken(nil)))
	assert.Nil(t, c.User(), "the token carries no user")

	alice := &user{name: "alice"}
	ctx := security.NewStaticContext(security.NewUserToken(alice))
	c.SetSecurityContext(ctx)
	assert.Equal(t, alice, c.User())
	assert.Equal(t, ctx, c.SecurityContext())
}
