package console

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/NotCoffee418/bt_pid_debugger/pkg/types"
)

// ParseSetArgs reads "<field> <value>".
func ParseSetArgs(args []string) (string, float32, error) {
	if len(args) < 2 {
		return "", 0, fmt.Errorf("%w: set <kp|ki|kd|setpoint> <value>", ErrMissingValue)
	}
	value, err := parseValue(args[0], args[1])
	if err != nil {
		return "", 0, err
	}
	return strings.ToLower(args[0]), value, nil
}

// ParseGainsArgs reads "<kp> <ki> <kd> <setpoint>".
func ParseGainsArgs(args []string) (types.Gains, error) {
	if len(args) < 4 {
		return types.Gains{}, fmt.Errorf("%w: gains <kp> <ki> <kd> <setpoint>", ErrMissingValue)
	}
	names := []string{"kp", "ki", "kd", "setpoint"}
	values := make([]float32, len(names))
	for i, name := range names {
		v, err := parseValue(name, args[i])
		if err != nil {
			return types.Gains{}, err
		}
		values[i] = v
	}
	return types.Gains{Kp: values[0], Ki: values[1], Kd: values[2], Setpoint: values[3]}, nil
}

func ParseOnOff(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", arg)
}

func parseValue(name, raw string) (float32, error) {
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return float32(v), nil
}
