package config

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"k8s.io/apimachinery/pkg/api/resource"
)

// Seconds is a duration that may be configured either as a plain number of seconds or as a
// Go duration string such as "1m30s".
type Seconds time.Duration

func (s Seconds) Duration() time.Duration {
	return time.Duration(s)
}

func (s Seconds) String() string {
	return time.Duration(s).String()
}

// CustomHooks must be passed to viper's Unmarshal so that Seconds, time.Duration and
// resource.Quantity fields decode correctly.
var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		SecondsDecodeHook(),
		QuantityDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)),
}

func SecondsDecodeHook() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != reflect.TypeOf(Seconds(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case int:
			return Seconds(time.Duration(v) * time.Second), nil
		case int32:
			return Seconds(time.Duration(v) * time.Second), nil
		case int64:
			return Seconds(time.Duration(v) * time.Second), nil
		case uint:
			return Seconds(time.Duration(v) * time.Second), nil
		case float32:
			return Seconds(time.Duration(float64(v) * float64(time.Second))), nil
		case float64:
			return Seconds(time.Duration(v * float64(time.Second))), nil
		case string:
			return parseSeconds(v)
		case time.Duration:
			return Seconds(v), nil
		}
		return data, nil
	}
}

func parseSeconds(s string) (Seconds, error) {
	if seconds, err := strconv.ParseFloat(s, 64); err == nil {
		return Seconds(time.Duration(seconds * float64(time.Second))), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%q is neither a number of seconds nor a duration", s)
	}
	return Seconds(d), nil
}

func QuantityDecodeHook() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != reflect.TypeOf(resource.Quantity{}) {
			return data, nil
		}
		return resource.ParseQuantity(fmt.Sprintf("%v", data))
	}
}
