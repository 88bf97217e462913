//go:build !linux

package app

func TuneFDs() {
}
