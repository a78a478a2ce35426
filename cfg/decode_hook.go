// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cfg

import (
	"reflect"

	"github.com/mitchellh/mapstructure"
)

func hookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		s := data.(string)
		switch t {
		case reflect.TypeOf(LogSeverity("")):
			var v LogSeverity
			if err := v.UnmarshalText([]byte(s)); err != nil {
				return nil, err
			}
			return v, nil
		case reflect.TypeOf(CacheFormat("")):
			var v CacheFormat
			if err := v.UnmarshalText([]byte(s)); err != nil {
				return nil, err
			}
			return v, nil
		case reflect.TypeOf(ResolvedPath("")):
			return resolveAbsolutePath(s)
		default:
			return data, nil
		}
	}
}

// DecodeHook composes the custom text-unmarshalling types above with
// mapstructure's defaults so viper can decode flags, environment variables
// and config-file strings into the typed Config fields.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		hookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}
