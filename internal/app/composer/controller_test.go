package composer

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Roster/internal/domain"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testDebounce = 20 * time.Millisecond

func newTestController(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	c := NewController("room-1", append([]Option{WithDebounce(testDebounce)}, opts...)...)
	t.Cleanup(c.Close)
	return c
}

func waitPasses(t *testing.T, c *Controller, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.ValidationPasses() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("validation passes = %d, want %d", c.ValidationPasses(), want)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantErr bool
	}{
		{name: "empty", message: ""},
		{name: "at limit", message: strings.Repeat("a", 300)},
		{name: "over limit", message: strings.Repeat("a", 301), wantErr: true},
		{name: "multibyte at limit", message: strings.Repeat("я", 300)},
		{name: "emoji count as one", message: strings.Repeat("😀", 300)},
		{name: "emoji over limit", message: strings.Repeat("😀", 301), wantErr: true},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			errs := Validate(testCase.message, DefaultMaxMessageLength)
			if testCase.wantErr != (len(errs) > 0) {
				t.Fatalf("Validate errors = %v, wantErr %v", errs, testCase.wantErr)
			}
			if errs == nil {
				t.Fatal("Validate must return a non-nil slice")
			}
		})
	}
}

func TestDebounceValidatesOnlyLatestInput(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	for _, v := range []string{"h", "he", "hel", "hell", "hello"} {
		c.SetMessageInput(v)
	}
	if c.Input() != "hello" {
		t.Fatalf("Input() = %q, want hello", c.Input())
	}

	waitPasses(t, c, 1)
	time.Sleep(3 * testDebounce)
	if got := c.ValidationPasses(); got != 1 {
		t.Fatalf("validation passes = %d, want 1", got)
	}
	if st := c.State().Value(); st.InputValue != "hello" || len(st.ValidationErrors) != 0 {
		t.Fatalf("state = %+v", st)
	}
}

func TestLengthErrorRaisedAndCleared(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	c.SetMessageInput(strings.Repeat("x", 301))
	waitPasses(t, c, 1)

	st := c.State().Value()
	if len(st.ValidationErrors) != 1 {
		t.Fatalf("errors = %v, want one", st.ValidationErrors)
	}
	le, ok := st.ValidationErrors[0].(domain.MessageLengthExceeded)
	if !ok || le.MessageLength != 301 || le.MaxMessageLength != 300 {
		t.Fatalf("error = %#v", st.ValidationErrors[0])
	}

	c.SetMessageInput(strings.Repeat("x", 300))
	waitPasses(t, c, 2)
	if st := c.State().Value(); len(st.ValidationErrors) != 0 {
		t.Fatalf("errors after fix = %v", st.ValidationErrors)
	}
}

func TestUpdateInputValueValidatesNow(t *testing.T) {
	t.Parallel()

	c := NewController("room-1", WithDebounce(time.Hour), WithMaxMessageLength(3))
	t.Cleanup(c.Close)

	c.SetMessageInput("toolong")
	c.UpdateInputValue()

	st := c.State().Value()
	if st.InputValue != "toolong" || len(st.ValidationErrors) != 1 {
		t.Fatalf("state = %+v", st)
	}
	if c.ValidationPasses() != 1 {
		t.Fatalf("passes = %d, want 1", c.ValidationPasses())
	}
}

func TestClearDataIsSynchronous(t *testing.T) {
	t.Parallel()

	c := newTestController(t)
	c.SetMessageInput(strings.Repeat("x", 301))
	waitPasses(t, c, 1)

	c.SetMessageInput("pending")
	c.ClearData()

	st := c.State().Value()
	if st.InputValue != "" || len(st.ValidationErrors) != 0 {
		t.Fatalf("state after ClearData = %+v", st)
	}
	time.Sleep(3 * testDebounce)
	if got := c.ValidationPasses(); got != 1 {
		t.Fatalf("pending pass ran after ClearData: passes = %d", got)
	}
	if st := c.State().Value(); st.InputValue != "" {
		t.Fatalf("input restored after ClearData: %q", st.InputValue)
	}
}

func TestCapabilities(t *testing.T) {
	t.Parallel()

	c := newTestController(t, WithCapabilities("send-message", "", "send-message"))
	if got := c.State().Value().OwnCapabilities; !slices.Equal(got, []string{"send-message"}) {
		t.Fatalf("capabilities = %v", got)
	}

	c.SetOwnCapabilities("send-message", "moderate-members")
	st := c.State().Value()
	if !st.HasCapability("moderate-members") || !st.HasCapability("send-message") {
		t.Fatalf("capabilities = %v", st.OwnCapabilities)
	}
	if st.HasCapability("admin") {
		t.Fatal("unexpected capability admin")
	}
}

func TestCloseStopsPendingValidation(t *testing.T) {
	t.Parallel()

	c := NewController("room-1", WithDebounce(testDebounce))
	ch, stop := c.State().Subscribe()
	defer stop()
	<-ch

	c.SetMessageInput("bye")
	c.Close()
	time.Sleep(3 * testDebounce)

	if c.ValidationPasses() != 0 {
		t.Fatal("validation ran after Close")
	}
	if _, ok := <-ch; ok {
		t.Fatal("state channel open after Close")
	}
	c.SetMessageInput("ignored")
	if c.Input() != "bye" {
		t.Fatalf("Input() = %q, input accepted after Close", c.Input())
	}
}
