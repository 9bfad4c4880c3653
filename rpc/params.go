// Copyright (C) 2025 dawn-network
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package rpc

import "encoding/json"

// BindParams unmarshals params (which may be a JSON array for positional
// args, a JSON object for named args, or absent) into dst. It returns a
// CodeInvalidParams *Error on any shape or type mismatch, as required by
// the spec's "-32602 Invalid Params" contract.
func BindParams(params json.RawMessage, dst interface{}) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return NewError(CodeInvalidParams, "Invalid params", err.Error())
	}
	return nil
}

// PositionalString extracts the i-th positional argument from a JSON array
// of params as a string, or returns a CodeInvalidParams error.
func PositionalString(params json.RawMessage, i int) (string, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(params, &args); err != nil {
		return "", NewError(CodeInvalidParams, "Invalid params", "expected positional array")
	}
	if i >= len(args) {
		return "", NewError(CodeInvalidParams, "Invalid params", "missing positional argument")
	}
	var s string
	if err := json.Unmarshal(args[i], &s); err != nil {
		return "", NewError(CodeInvalidParams, "Invalid params", "argument is not a string")
	}
	return s, nil
}
