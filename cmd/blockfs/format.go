// Copyright 2024 Google Inc. All Rights Reserved.
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

package main

import (
	"fmt"

	"github.com/essandess/blockfs/internal/allocator"
	"github.com/essandess/blockfs/internal/cache"
	"github.com/essandess/blockfs/internal/device"
	"github.com/essandess/blockfs/internal/inode"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Lay out a fresh blockfs image",
	Long: `format sizes the backing file to --sector-count sectors, stamps a
superblock with a fresh volume UUID into sector 0, and creates an empty
root directory inode at sector 1 — the Go counterpart of filesys.c's
do_format plus filesys_init's format=true path, minus directory-entry
population.`,
	RunE: runFormat,
}

func runFormat(cmd *cobra.Command, args []string) error {
	dev, err := device.CreateFileDevice(string(config.Device.Path), config.Device.SectorSize, config.Device.SectorCount)
	if err != nil {
		return err
	}
	defer dev.Close()

	c := cache.New(dev, config.Cache.Frames)
	defer c.Close()

	alloc := allocator.New(config.Device.SectorCount)
	if err := alloc.Reserve(inode.SuperblockSector); err != nil {
		return fmt.Errorf("reserving superblock sector: %w", err)
	}
	if err := alloc.Reserve(inode.RootSector); err != nil {
		return fmt.Errorf("reserving root inode sector: %w", err)
	}

	sb := inode.Superblock{
		VolumeID:    uuid.New(),
		SectorSize:  uint32(config.Device.SectorSize),
		SectorCount: config.Device.SectorCount,
	}
	if err := inode.WriteSuperblock(c, sb); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}

	inodes := inode.NewInodes(c, alloc)
	if err := inodes.Create(inode.RootSector, 0, true); err != nil {
		return fmt.Errorf("creating root inode: %w", err)
	}

	fmt.Printf("formatted %s: %d sectors of %d bytes, volume %s\n",
		config.Device.Path, config.Device.SectorCount, config.Device.SectorSize, sb.VolumeID)
	return nil
}
