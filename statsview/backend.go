// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build statsview

package statsview

import (
	"time"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const backend = true

func serve(addr string, interval time.Duration) (func(), error) {
	viewer.SetConfiguration(
		viewer.WithAddr(addr),
		viewer.WithInterval(int(interval/time.Millisecond)),
	)
	mgr := statsview.New()
	go mgr.Start()
	return mgr.Stop, nil
}
