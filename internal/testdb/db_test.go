package testdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseURL(t *testing.T) {
	t.Setenv("SCRY_TEST_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	assert.Empty(t, DatabaseURL())

	t.Setenv("DATABASE_URL", "postgres://ci@localhost/scry")
	assert.Equal(t, "postgres://ci@localhost/scry", DatabaseURL())

	t.Setenv("SCRY_TEST_DATABASE_URL", "postgres://dev@localhost/scry_test")
	assert.Equal(t, "postgres://dev@localhost/scry_test", DatabaseURL())
}

func TestMaskURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "password", in: "postgres://scry:hunter2@db:5432/scry", want: "postgres://scry:xxxxx@db:5432/scry"},
		{name: "no password", in: "postgres://scry@db/scry", want: "postgres://scry@db/scry"},
		{name: "no user", in: "postgres://db/scry", want: "postgres://db/scry"},
		{name: "not a url", in: "host=db user=scry", want: "host=db user=scry"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MaskURL(tc.in))
		})
	}
}

func TestOpenSkipsWithoutURL(t *testing.T) {
	t.Setenv("SCRY_TEST_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "")

	ran := false
	t.Run("skipped", func(t *testing.T) {
		defer func() { ran = true }()
		Open(t)
		t.Error("Open returned without a database")
	})
	assert.True(t, ran)
}
