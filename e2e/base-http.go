package e2e

import (
	"chat-presence/client"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"
)

type BaseHTTPSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerURL == "" {
		s.T().Skip("CHAT_SERVER_URL is not set")
	}
}

// Step runs fn with a fresh client under a colorized header
func (s *BaseHTTPSuite) Step(name string, fn func(ctx context.Context, c *client.Client)) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	ctx, cancel := context.WithTimeout(context.Background(), s.Config.Timeout*4)
	defer cancel()
	fn(ctx, client.New(s.Config.ServerURL, s.Config.Timeout))
}

// Name returns a participant name that will not clash with a previous run.
func (s *BaseHTTPSuite) Name(prefix string) string {
	return prefix + uuid.NewString()[:8]
}
