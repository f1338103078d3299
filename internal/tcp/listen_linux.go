//go:build linux

package tcp

import (
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// listen opens a listening TCP socket with an explicit accept backlog. The
// standard library always uses the system maximum, so the socket is built
// by hand and then handed to the runtime netpoller.
func listen(address string, backlog int) (net.Listener, error) {
	addr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, err
	}

	family, sa, err := sockaddr(addr)
	if err != nil {
		return nil, err
	}

	dualStack := family == unix.AF_INET6 && isWildcard(addr)

	fd, err := socket(family)
	if errors.Is(err, unix.EAFNOSUPPORT) && dualStack {
		// No IPv6 on this host, a wildcard then means every IPv4
		// address.
		family, sa = unix.AF_INET, &unix.SockaddrInet4{Port: addr.Port}
		dualStack = false
		fd, err = socket(family)
	}
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}

	// The fd is duplicated by FileListener, this copy is always ours to
	// close.
	f := os.NewFile(uintptr(fd), "tcp:"+address)
	defer f.Close()

	err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	if err != nil {
		return nil, os.NewSyscallError("setsockopt", err)
	}
	if dualStack {
		err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6,
			unix.IPV6_V6ONLY, 0)
		if err != nil {
			return nil, os.NewSyscallError("setsockopt", err)
		}
	}
	if err := unix.Bind(fd, sa); err != nil {
		return nil, os.NewSyscallError("bind", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return nil, os.NewSyscallError("listen", err)
	}

	return net.FileListener(f)
}

// socket creates a non-blocking TCP socket of the given family.
func socket(family int) (int, error) {
	return unix.Socket(family,
		unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC,
		unix.IPPROTO_TCP)
}

// isWildcard reports whether addr names every local address.
func isWildcard(addr *net.TCPAddr) bool {
	return addr.IP == nil || addr.IP.IsUnspecified()
}

// sockaddr converts addr into its socket family and address. A wildcard
// host maps to the IPv6 any address, which listen opens dual-stack like
// net.Listen does.
func sockaddr(addr *net.TCPAddr) (int, unix.Sockaddr, error) {
	if isWildcard(addr) {
		return unix.AF_INET6, &unix.SockaddrInet6{Port: addr.Port}, nil
	}

	if ip4 := addr.IP.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)

		return unix.AF_INET, sa, nil
	}

	ip := addr.IP.To16()
	if ip == nil {
		return 0, nil, fmt.Errorf("invalid IP address %v", addr.IP)
	}

	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], ip)

	if addr.Zone != "" {
		ifi, err := net.InterfaceByName(addr.Zone)
		if err != nil {
			return 0, nil, err
		}
		sa.ZoneId = uint32(ifi.Index)
	}

	return unix.AF_INET6, sa, nil
}
