// Package transport writes command bytes to the grow controller.
//
// Every Send opens the endpoint, writes, and closes it again; no connection
// is held between calls. The whole cycle is bounded by a timeout, and there
// is no retry at this level.
//
// Endpoints are given as URLs:
//
//	serial:///dev/ttyACM0   serial port, 8N1 at the configured baud rate
//	/dev/ttyUSB0            bare device path, same as serial://
//	tcp://10.0.0.20:4001    raw TCP, e.g. a ser2net bridge
package transport
