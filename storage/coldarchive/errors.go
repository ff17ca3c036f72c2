package coldarchive

import "errors"

var errRowShape = errors.New("coldarchive: row does not match expected column count")
