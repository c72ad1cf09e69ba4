package extract

import "errors"

var errSelectorFailed = errors.New("extract: selector evaluation failed")
