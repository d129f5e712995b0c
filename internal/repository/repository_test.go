// Copyright 2025 RapidRide Contributors
// Licensed under the EUPL-1.2

package repository_test

import (
	"testing"

	"github.com/rapidride/verifyd/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	assert.NotNil(t, repo)
	assert.NotNil(t, repo.DB())
}
