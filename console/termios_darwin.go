// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package console

import "golang.org/x/sys/unix"

const (
	ioctlGets = unix.TIOCGETA
	ioctlSets = unix.TIOCSETA
)

func setSpeed(tio *unix.Termios) {
	// speed_t carries the literal baud rate on darwin.
	tio.Ispeed = 115200
	tio.Ospeed = 115200
}
