// Copyright (c) 2026 VerdantFox
// Strongbox - local credential vault
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import "github.com/verdantfox/strongbox/internal/logging"

// dbLogf routes database diagnostics through the application logger at debug
// level so normal operation stays quiet.
func dbLogf(format string, v ...any) {
	logging.Debugf(format, v...)
}
