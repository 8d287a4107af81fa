// Package iofd demonstrates the core event and driver machinery through a
// small, real non-blocking file descriptor wrapper: Open/Socket construct
// one, Read/Write/Accept/Connect suspend the caller behind an event until
// the driver reports the fd ready, and Close tears it down along with any
// still-parked caller. It is not meant as a complete networking layer,
// only proof that the scheduled-I/O and cooperative-mutex pieces compose
// into something a caller could actually use.
//
// Author: momentics <momentics@gmail.com>
package iofd
