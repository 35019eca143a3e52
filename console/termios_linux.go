// Copyright 2025 The fruitjam Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package console

import "golang.org/x/sys/unix"

const (
	ioctlGets = unix.TCGETS
	ioctlSets = unix.TCSETS
)

func setSpeed(tio *unix.Termios) {
	tio.Cflag &^= unix.CBAUD
	tio.Cflag |= unix.B115200
	tio.Ispeed = unix.B115200
	tio.Ospeed = unix.B115200
}
