package led

import (
	"context"
	"fmt"

	"github.com/smazurov/lcrnode/internal/device"
)

// sessionController implements Controller over a device session.
type sessionController struct {
	session *device.Session
}

func newSessionController(session *device.Session) *sessionController {
	return &sessionController{session: session}
}

// SetEnables writes the LED enable register.
func (s *sessionController) SetEnables(ctx context.Context, e Enables) error {
	if err := s.session.SetLEDEnables(ctx, e); err != nil {
		return fmt.Errorf("failed to set LED enables: %w", err)
	}
	return nil
}

// SetCurrents converts and writes the LED drive levels.
func (s *sessionController) SetCurrents(ctx context.Context, c Currents) error {
	pwm, err := c.PWM()
	if err != nil {
		return err
	}
	if err := s.session.SetLEDCurrents(ctx, pwm); err != nil {
		return fmt.Errorf("failed to set LED currents: %w", err)
	}
	return nil
}

// State reads both LED registers.
func (s *sessionController) State(ctx context.Context) (State, error) {
	e, err := s.session.LEDEnables(ctx)
	if err != nil {
		return State{}, fmt.Errorf("failed to read LED enables: %w", err)
	}
	pwm, err := s.session.LEDCurrents(ctx)
	if err != nil {
		return State{}, fmt.Errorf("failed to read LED currents: %w", err)
	}
	return State{Enables: e, Currents: CurrentsFromPWM(pwm)}, nil
}

// Available returns the three light engine colors.
func (s *sessionController) Available() []string {
	return append([]string(nil), colors...)
}
