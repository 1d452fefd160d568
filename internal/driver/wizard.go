package driver

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/nerrad567/hubdriver-core/internal/infrastructure/config"
	"github.com/nerrad567/hubdriver-core/internal/protocol"
	"github.com/nerrad567/hubdriver-core/internal/setup"
)

// Wizard is the driver's setup handler. It stores the values the hub
// submits and asks for missing required fields with a form.
//
// A reconfiguration of an already configured driver is confirmed by the
// user before the stored values are discarded.
type Wizard struct {
	store  SetupStore
	fields []config.SetupFieldConfig
	logger Logger

	mu      sync.Mutex
	pending map[string]string // setup_data held while a confirmation is open
}

// NewWizard creates a wizard persisting into store.
func NewWizard(store SetupStore, fields []config.SetupFieldConfig) *Wizard {
	return &Wizard{
		store:  store,
		fields: fields,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the wizard.
func (w *Wizard) SetLogger(logger Logger) {
	w.logger = logger
}

// Handle implements setup.Handler.
func (w *Wizard) Handle(ctx context.Context, msg setup.Message) (setup.Action, error) {
	switch m := msg.(type) {
	case setup.DriverSetupRequest:
		return w.start(ctx, m)
	case setup.UserConfirmationResponse:
		return w.confirm(ctx, m)
	case setup.UserDataResponse:
		if err := w.save(ctx, m.InputValues); err != nil {
			return nil, err
		}
		return w.next(ctx, true)
	case setup.AbortDriverSetup:
		w.takePending()
		w.logger.Info("setup aborted", "reason", m.Error)
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected setup message %T", msg)
	}
}

func (w *Wizard) start(ctx context.Context, req setup.DriverSetupRequest) (setup.Action, error) {
	if req.Reconfigure {
		stored, err := w.store.All(ctx)
		if err != nil {
			return nil, err
		}
		if len(stored) > 0 {
			w.mu.Lock()
			w.pending = maps.Clone(req.SetupData)
			w.mu.Unlock()
			return setup.RequestUserConfirmation{
				Title:  protocol.LanguageText{"en": "Reconfigure driver"},
				Header: protocol.LanguageText{"en": "The stored settings will be replaced."},
			}, nil
		}
	}

	if err := w.save(ctx, req.SetupData); err != nil {
		return nil, err
	}
	return w.next(ctx, false)
}

func (w *Wizard) confirm(ctx context.Context, resp setup.UserConfirmationResponse) (setup.Action, error) {
	pending := w.takePending()
	if !resp.Confirm {
		w.logger.Info("reconfiguration declined, keeping stored settings")
		return setup.Complete{}, nil
	}

	if err := w.store.Clear(ctx); err != nil {
		return nil, err
	}
	if err := w.save(ctx, pending); err != nil {
		return nil, err
	}
	return w.next(ctx, false)
}

// next completes the setup when every required field has a value and
// shows the form otherwise. A form that was already answered without the
// required values fails the setup.
func (w *Wizard) next(ctx context.Context, answered bool) (setup.Action, error) {
	stored, err := w.store.All(ctx)
	if err != nil {
		return nil, err
	}

	missing := w.missing(stored)
	if len(missing) == 0 {
		w.logger.Info("setup complete", "values", len(stored))
		return setup.Complete{}, nil
	}
	if answered {
		w.logger.Warn("setup form submitted without required values", "missing", missing)
		return setup.Error{Code: protocol.SetupErrorOther}, nil
	}

	return setup.RequestUserInput{
		Title:    protocol.LanguageText{"en": "Driver settings"},
		Settings: w.form(stored),
	}, nil
}

func (w *Wizard) missing(stored map[string]string) []string {
	var missing []string
	for _, f := range w.fields {
		if f.Required && stored[f.ID] == "" {
			missing = append(missing, f.ID)
		}
	}
	return missing
}

// form builds the text input settings, pre-filled with stored values.
func (w *Wizard) form(stored map[string]string) []any {
	settings := make([]any, 0, len(w.fields))
	for _, f := range w.fields {
		value := f.Default
		if v, ok := stored[f.ID]; ok {
			value = v
		}
		label := protocol.LanguageText(f.Label)
		if len(label) == 0 {
			label = protocol.LanguageText{"en": f.ID}
		}
		settings = append(settings, map[string]any{
			"id":    f.ID,
			"label": label,
			"field": map[string]any{"text": map[string]any{"value": value}},
		})
	}
	return settings
}

func (w *Wizard) save(ctx context.Context, values map[string]string) error {
	for k, v := range values {
		if err := w.store.Put(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (w *Wizard) takePending() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := w.pending
	w.pending = nil
	return p
}
