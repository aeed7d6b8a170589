package featuregen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// boolChoiceValue is a boolean flag that also accepts yes/no and on/off.
type boolChoiceValue struct {
	target *bool
}

func (value *boolChoiceValue) String() string {
	if value == nil || value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *boolChoiceValue) Set(input string) error {
	parsed, ok := parseBoolChoice(input)
	if !ok {
		return fmt.Errorf("invalid boolean value %q", input)
	}
	*value.target = parsed
	return nil
}

func (value *boolChoiceValue) Type() string {
	return "bool"
}

// registerBoolChoiceFlag lets the flag appear bare (--debug) or with a value (--debug=no).
func registerBoolChoiceFlag(flags *pflag.FlagSet, target *bool, name string, usage string) {
	flags.Var(&boolChoiceValue{target: target}, name, usage)
	if flag := flags.Lookup(name); flag != nil {
		flag.NoOptDefVal = "true"
		flag.DefValue = "false"
	}
}

func parseBoolChoice(input string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "true", "t", "1", "yes", "y", "on":
		return true, true
	case "false", "f", "0", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
