package wake

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prestond28/road-trip-game-box/internal/audio"
)

var ErrNoDetector = errors.New("no wake detector for backend")

// NewDetector builds the detector named by backend.
func NewDetector(backend string, cfg EnergyConfig, capture audio.CaptureFunc, logger *slog.Logger) (Detector, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "energy":
		return NewEnergyDetector(cfg, capture, logger), nil
	case "manual":
		return NewManualDetector(), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrNoDetector, backend)
	}
}
