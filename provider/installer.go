package provider

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/romsan-app/romsan/constant"
	"github.com/romsan-app/romsan/filesystem"
	"github.com/romsan-app/romsan/internal/scraper"
	"github.com/romsan-app/romsan/log"
	"github.com/romsan-app/romsan/platform"
	"github.com/romsan-app/romsan/source"
	"github.com/romsan-app/romsan/version"
	"github.com/romsan-app/romsan/where"
	"github.com/mholt/archives"
	"github.com/spf13/afero"
)

// Install validates a distributable source archive and installs it under the
// sources directory, atomically replacing any previous install of the same id.
//
// The archive must contain, at its root or inside exactly one immediate
// subdirectory (which is flattened), a metadata file and a platform-mapping
// file. Validation failures reject the archive before any persistent state
// changes.
func Install(ctx context.Context, archivePath string) (*source.SourceDescriptor, error) {
	fs := filesystem.API()

	tmp, err := afero.TempDir(fs, where.Temp(), "install-")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	defer func() {
		_ = fs.RemoveAll(tmp)
	}()

	if err := extractArchive(ctx, archivePath, tmp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	if err := flatten(tmp); err != nil {
		return nil, err
	}

	raw, err := fs.ReadFile(filepath.Join(tmp, constant.MetadataFile))
	if err != nil {
		return nil, ErrMissingMetadata
	}

	desc, err := ParseDescriptor(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingMetadata, err)
	}

	if err := validateDescriptor(desc, tmp); err != nil {
		return nil, err
	}

	mappingRaw, err := fs.ReadFile(filepath.Join(tmp, constant.MappingFile))
	if err != nil {
		return nil, ErrMissingMapping
	}
	if _, err := platform.ParseMapping(mappingRaw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingMapping, err)
	}

	// Enabled survives an update only when the incoming version is strictly
	// newer; a same-or-older re-install starts from the default.
	enabled := true
	if current, err := GetDescriptor(desc.ID); err == nil && current != nil {
		if version.IsNewer(desc.Version, current.Version) {
			enabled = current.Enabled
		}
	}

	target := filepath.Join(where.Sources(), desc.ID)
	if err := replaceDir(tmp, target); err != nil {
		return nil, fmt.Errorf("install source directory: %w", err)
	}

	if desc.Kind == source.BackendScript {
		scraper.Invalidate(filepath.Join(target, desc.ScriptPath))
	}

	desc.InstallPath = target
	desc.Enabled = enabled

	states, err := readStates()
	if err != nil {
		return nil, err
	}
	states[desc.ID] = &installedState{Descriptor: desc, Enabled: enabled}
	if err := writeStates(states); err != nil {
		return nil, err
	}

	log.Infof("installed source %s %s (%s backend)", desc.ID, desc.Version, desc.Kind)
	return desc, nil
}

// extractArchive unpacks any supported archive format into destDir.
func extractArchive(ctx context.Context, archivePath, destDir string) error {
	fs := filesystem.API()

	f, err := fs.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	format, stream, err := archives.Identify(ctx, filepath.Base(archivePath), f)
	if err != nil {
		return fmt.Errorf("unrecognized archive format: %w", err)
	}

	extractor, ok := format.(archives.Extractor)
	if !ok {
		return fmt.Errorf("format %s is not extractable", format.Extension())
	}

	cleanDest := filepath.Clean(destDir)

	return extractor.Extract(ctx, stream, func(ctx context.Context, info archives.FileInfo) error {
		target := filepath.Join(cleanDest, filepath.FromSlash(info.NameInArchive))
		if !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) && target != cleanDest {
			return fmt.Errorf("archive entry %q escapes the extraction directory", info.NameInArchive)
		}

		if info.IsDir() {
			return fs.MkdirAll(target, os.ModePerm)
		}

		if err := fs.MkdirAll(filepath.Dir(target), os.ModePerm); err != nil {
			return err
		}

		in, err := info.Open()
		if err != nil {
			return err
		}
		defer in.Close()

		out, err := fs.Create(target)
		if err != nil {
			return err
		}
		defer out.Close()

		_, err = io.Copy(out, in)
		return err
	})
}

// flatten promotes the contents of a single top-level directory when the
// metadata file sits exactly one level deep instead of at the root.
func flatten(dir string) error {
	fs := filesystem.API()

	if exists, _ := fs.Exists(filepath.Join(dir, constant.MetadataFile)); exists {
		return nil
	}

	entries, err := fs.ReadDir(dir)
	if err != nil {
		return err
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}

	if len(dirs) != 1 {
		return ErrMissingMetadata
	}

	child := filepath.Join(dir, dirs[0])
	if exists, _ := fs.Exists(filepath.Join(child, constant.MetadataFile)); !exists {
		return ErrMissingMetadata
	}

	children, err := fs.ReadDir(child)
	if err != nil {
		return err
	}
	for _, entry := range children {
		from := filepath.Join(child, entry.Name())
		to := filepath.Join(dir, entry.Name())
		if err := fs.Rename(from, to); err != nil {
			return fmt.Errorf("flatten archive layout: %w", err)
		}
	}

	return fs.RemoveAll(child)
}

// replaceDir atomically swaps staged into target, restoring the previous
// install when the swap fails half way.
func replaceDir(staged, target string) error {
	fs := filesystem.API()

	backup := target + ".old"
	hadPrevious, _ := fs.DirExists(target)

	if hadPrevious {
		_ = fs.RemoveAll(backup)
		if err := fs.Rename(target, backup); err != nil {
			return err
		}
	}

	if err := fs.Rename(staged, target); err != nil {
		if hadPrevious {
			_ = fs.Rename(backup, target)
		}
		return err
	}

	if hadPrevious {
		_ = fs.RemoveAll(backup)
	}
	return nil
}
