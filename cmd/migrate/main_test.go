package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPgx5URL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/coach", pgx5URL("postgres://u:p@db:5432/coach"))
	assert.Equal(t, "pgx5://db/coach?sslmode=disable", pgx5URL("postgresql://db/coach?sslmode=disable"))
	assert.Equal(t, "pgx5://db/coach", pgx5URL("pgx5://db/coach"))
}
