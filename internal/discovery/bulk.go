package discovery

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"tablehub/domain/core"
	"tablehub/domain/profile"
	"tablehub/ports"
)

// BulkPass reconciles a bulk-dump source once: fetch the dump with a
// running digest, stop early when it is unchanged, otherwise extract,
// submit every listed dataset and purge the rest. The digest is only
// recorded after every dataset has been submitted.
func (r *Runner) BulkPass(ctx context.Context, src ports.BulkSource) error {
	identifier := src.Identifier()

	prior, err := r.pending.GetDigest(ctx, identifier)
	if err != nil && !core.IsNotFound(err) {
		return fmt.Errorf("failed to load prior digest for %s: %w", identifier, err)
	}

	dumpPath, digest, cleanupDump, err := r.fetchDump(ctx, src)
	if err != nil {
		return err
	}
	defer cleanupDump()

	if digest.Equals(prior) {
		r.log.Info("%s: dump unchanged (%s)", identifier, digest)
		return nil
	}

	extractDir, cleanupDir, err := extractTarball(dumpPath)
	if err != nil {
		return fmt.Errorf("failed to extract dump for %s: %w", identifier, err)
	}
	defer cleanupDir()

	descriptors, err := src.ListDatasets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", identifier, err)
	}

	seen := map[string]bool{}
	for _, d := range descriptors {
		id := core.NewDatasetID(identifier, d.SourceLocalID)
		csvPath, err := findDatasetFile(extractDir, d.SourceLocalID)
		if err != nil {
			r.log.Warn("skipping %s: %v", id, err)
			continue
		}
		if d.Materialize == nil {
			d.Materialize = profile.Materialize{profile.MaterializeIdentifier: identifier}
		}
		d.Materialize[profile.MaterializePath] = csvPath
		if err := r.submit(ctx, id, d); err != nil {
			r.log.Warn("failed to submit %s: %v", id, err)
			continue
		}
		seen[d.SourceLocalID] = true
	}

	if err := r.purgeUnseen(ctx, identifier, seen); err != nil {
		return err
	}

	if err := r.pending.PutDigest(ctx, identifier, digest); err != nil {
		return fmt.Errorf("failed to record digest for %s: %w", identifier, err)
	}
	r.log.Info("%s: ingested dump %s, %d datasets", identifier, digest, len(seen))
	return nil
}

// fetchDump streams the dump to a temp file while hashing it.
func (r *Runner) fetchDump(ctx context.Context, src ports.BulkSource) (string, core.Digest, func(), error) {
	noop := func() {}
	body, err := src.FetchDump(ctx)
	if err != nil {
		return "", "", noop, fmt.Errorf("failed to fetch dump for %s: %w", src.Identifier(), err)
	}
	defer body.Close()

	f, err := os.CreateTemp("", "tablehub-dump-*.tar.gz")
	if err != nil {
		return "", "", noop, fmt.Errorf("failed to create dump file: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }

	hasher := core.NewDigestHasher()
	if _, err := io.Copy(io.MultiWriter(f, hasher), body); err != nil {
		f.Close()
		cleanup()
		return "", "", noop, fmt.Errorf("failed to stream dump for %s: %w", src.Identifier(), err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", "", noop, fmt.Errorf("failed to close dump file: %w", err)
	}
	return f.Name(), hasher.Sum(), cleanup, nil
}

// extractTarball unpacks a .tar.gz into a scoped temp directory.
func extractTarball(path string) (string, func(), error) {
	noop := func() {}
	dir, err := os.MkdirTemp("", core.NewConsumerTag("tablehub-extract"))
	if err != nil {
		return "", noop, fmt.Errorf("failed to create extract dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	f, err := os.Open(path)
	if err != nil {
		cleanup()
		return "", noop, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		cleanup()
		return "", noop, fmt.Errorf("dump is not gzip: %w", err)
	}
	defer gz.Close()

	reader := tar.NewReader(gz)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			cleanup()
			return "", noop, fmt.Errorf("failed to read tar entry: %w", err)
		}
		target, err := safeJoin(dir, header.Name)
		if err != nil {
			cleanup()
			return "", noop, err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				cleanup()
				return "", noop, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				cleanup()
				return "", noop, err
			}
			out, err := os.Create(target)
			if err != nil {
				cleanup()
				return "", noop, err
			}
			if _, err := io.Copy(out, reader); err != nil {
				out.Close()
				cleanup()
				return "", noop, fmt.Errorf("failed to extract %s: %w", header.Name, err)
			}
			if err := out.Close(); err != nil {
				cleanup()
				return "", noop, err
			}
		}
	}
	return dir, cleanup, nil
}

// safeJoin rejects entries escaping the extraction root.
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.Clean("/"+name))
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: tar entry %q escapes extraction dir", core.ErrSourceProtocol, name)
	}
	return target, nil
}

// findDatasetFile locates the CSV of one dataset inside the extracted
// dump, trying <id>.csv at any depth.
func findDatasetFile(dir, localID string) (string, error) {
	want := localID + ".csv"
	var found string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && info.Name() == want {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to search dump: %w", err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: no %s in dump", core.ErrSourceProtocol, want)
	}
	return found, nil
}
