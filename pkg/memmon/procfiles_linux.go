//go:build linux
// +build linux

// Copyright 2022 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memmon

import (
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

func procReadUint64(path string) (uint64, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
}

// procPageIdleBitmapFile reads and writes
// /sys/kernel/mm/page_idle/bitmap. The file contains one bit per
// frame, packed in 64-bit words. Writing a set bit marks the frame
// idle; the bit reads back as zero once the frame has been accessed.
type procPageIdleBitmapFile struct {
	file *os.File
}

func ProcPageIdleBitmapOpen() (*procPageIdleBitmapFile, error) {
	file, err := os.OpenFile("/sys/kernel/mm/page_idle/bitmap", os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return &procPageIdleBitmapFile{file: file}, nil
}

func (f *procPageIdleBitmapFile) Close() error {
	return f.file.Close()
}

func (f *procPageIdleBitmapFile) GetIdle(pfn uint64) (bool, error) {
	var buf [8]byte
	offset := int64(pfn / 64 * 8)
	n, err := unix.Pread(int(f.file.Fd()), buf[:], offset)
	if err != nil {
		return false, err
	}
	if n != len(buf) {
		return false, fmt.Errorf("short read of %d bytes from page_idle bitmap", n)
	}
	bits := binary.LittleEndian.Uint64(buf[:])
	return bits&(uint64(1)<<(pfn%64)) != 0, nil
}

func (f *procPageIdleBitmapFile) SetIdle(pfn uint64) error {
	var buf [8]byte
	offset := int64(pfn / 64 * 8)
	binary.LittleEndian.PutUint64(buf[:], uint64(1)<<(pfn%64))
	n, err := unix.Pwrite(int(f.file.Fd()), buf[:], offset)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("short write of %d bytes to page_idle bitmap", n)
	}
	return nil
}

// procKpageflagsFile reads /proc/kpageflags, one 64-bit flag word per
// frame.
type procKpageflagsFile struct {
	file *os.File
}

func ProcKpageflagsOpen() (*procKpageflagsFile, error) {
	file, err := os.OpenFile("/proc/kpageflags", os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return &procKpageflagsFile{file: file}, nil
}

func (f *procKpageflagsFile) Close() error {
	return f.file.Close()
}

func (f *procKpageflagsFile) ReadFlags(pfn uint64) (uint64, error) {
	var buf [8]byte
	offset := int64(pfn * 8)
	n, err := unix.Pread(int(f.file.Fd()), buf[:], offset)
	if err != nil {
		return 0, err
	}
	if n != len(buf) {
		return 0, fmt.Errorf("short read of %d bytes from kpageflags", n)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
