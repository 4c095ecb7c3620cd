// Copyright 2026 Blink Labs Software
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

package types

import (
	"database/sql/driver"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
)

//nolint:recvcheck
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return cbor.Encode([]string(l))
}

func (l *StringList) Scan(val any) error {
	data, err := scanBytes(val)
	if err != nil {
		return err
	}
	var tmp []string
	if _, err := cbor.Decode(data, &tmp); err != nil {
		return fmt.Errorf("decode string list: %w", err)
	}
	*l = tmp
	return nil
}

//nolint:recvcheck
type Uint64List []uint64

func (l Uint64List) Value() (driver.Value, error) {
	if l == nil {
		l = Uint64List{}
	}
	return cbor.Encode([]uint64(l))
}

func (l *Uint64List) Scan(val any) error {
	data, err := scanBytes(val)
	if err != nil {
		return err
	}
	var tmp []uint64
	if _, err := cbor.Decode(data, &tmp); err != nil {
		return fmt.Errorf("decode uint64 list: %w", err)
	}
	*l = tmp
	return nil
}

func scanBytes(val any) ([]byte, error) {
	switch v := val.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, fmt.Errorf(
		"value was not expected type, wanted []byte, got %T",
		val,
	)
}
