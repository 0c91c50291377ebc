package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/enrollment-sync-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "sync", Password: "pw", Name: "enrollment_sync"})
	assert.Equal(t, "host=db port=5432 user=sync password=pw dbname=enrollment_sync sslmode=disable", dsn)

	dsn = DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "sync", Name: "x", SSLMode: "require"})
	assert.Contains(t, dsn, "sslmode=require")
}
