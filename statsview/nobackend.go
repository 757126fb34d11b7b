// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !statsview

package statsview

import "time"

const backend = false

func serve(string, time.Duration) (func(), error) {
	return nil, ErrUnavailable
}
