package config

import "errors"

var ErrReadConfigFail = errors.New("failed to read config file")
var ErrInvalidConfig = errors.New("invalid config")
