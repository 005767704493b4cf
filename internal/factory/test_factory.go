package factory

import (
	"time"

	"github.com/pinchat/pinchat/internal/chat"
	"github.com/pinchat/pinchat/internal/dependencies/mocks"
	"github.com/pinchat/pinchat/internal/dependencies/random"
	"github.com/pinchat/pinchat/internal/services/directory"
	"github.com/pinchat/pinchat/internal/storage/memory"
	"github.com/pinchat/pinchat/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
}

// NewTestApp creates an App configured for testing. The clock is mocked;
// randomness stays real so generated PINs are unique.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	app := newWithDependencies(
		store, mockClock, random.New(),
		directory.DefaultConfig(), chat.DefaultConfig(),
		testutil.NopLogger(),
	)

	return &TestApp{
		App:       app,
		MockClock: mockClock,
	}
}
