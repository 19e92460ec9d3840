package notify

import (
	"context"
	"io"
	"log"
	"testing"

	"culturepipe/lib/keypool"
	"culturepipe/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestDisabledNotifierIsNoop(t *testing.T) {
	n := NewNotifier(Config{})
	require.False(t, n.Enabled())
	require.NoError(t, n.KeyPoolExhausted(context.Background(), keypool.Status{}, "Acme"))
}

func TestKeyPoolExhaustedEmail(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:notify")
	defer cleanup()

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	smtpContainer, err := testcontainers.GenericContainer(
		context.Background(),
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "haravich/fake-smtp-server",
				ExposedPorts: []string{"1025:1025", "1080:1080"},
				WaitingFor:   wait.ForLog("smtp://0.0.0.0:1025"),
			},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	defer smtpContainer.Terminate(context.Background())

	n := NewNotifier(Config{
		Smtp: SmtpConfig{
			Server:       "localhost",
			Port:         1025,
			EmailAddress: "pipeline@example.com",
			Password:     "default",
		},
		Recipients: []string{"ops@example.com"},
	})
	require.True(t, n.Enabled())

	keys := keypool.New([]string{"a", "b"}, "")
	keys.Rotate("credits_exhausted")
	keys.Rotate("credits_exhausted")

	err = n.KeyPoolExhausted(context.Background(), keys.Status(), "Acme")
	require.NoError(t, err)

	res, err := resty.New().R().Get("http://127.0.0.1:1080/messages/1.plain")
	require.NoError(t, err)
	require.Contains(t, res.String(), "out of credits")
	require.Contains(t, res.String(), "Acme")
}
