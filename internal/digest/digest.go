/*
 *     Copyright 2026 Socket, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package digest computes SHA-256 digests of artifact files, caching the
// result in extended attributes so unchanged files are never rehashed.
package digest

import (
	"fmt"
	"io"
	"os"
	"strconv"

	sha256 "github.com/minio/sha256-simd"
	godigest "github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"

	"github.com/SocketDev/socket-btm/pkg/xattr"
)

// FromReader hashes r and returns the canonical digest and the number of
// bytes read.
func FromReader(r io.Reader) (godigest.Digest, int64, error) {
	hash := sha256.New()
	size, err := io.Copy(hash, r)
	if err != nil {
		return "", 0, fmt.Errorf("failed to copy content to hash: %w", err)
	}

	return godigest.NewDigest(godigest.SHA256, hash), size, nil
}

// FromFile returns the digest and size of the file at path. A digest cached
// in the file's xattrs is reused when the recorded size and mtime still
// match; otherwise the file is hashed and the xattrs refreshed.
func FromFile(path string) (godigest.Digest, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if dgst, ok := cachedDigest(path, info); ok {
		logrus.Debugf("digest: retrieved digest from xattr for file %s [digest: %s]", path, dgst)
		return dgst, info.Size(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	dgst, size, err := FromReader(f)
	if err != nil {
		return "", 0, err
	}

	// Best effort, the filesystem may not support xattrs.
	cacheDigest(path, info, dgst)
	return dgst, size, nil
}

// cachedDigest looks up a digest tagged on the file, valid only while the
// recorded mtime and size both match the current file state.
func cachedDigest(path string, info os.FileInfo) (godigest.Digest, bool) {
	mtime, err := xattr.Get(path, xattr.MakeKey(xattr.KeyMtime))
	if err != nil || string(mtime) != strconv.FormatInt(info.ModTime().UnixNano(), 10) {
		return "", false
	}

	sizeBytes, err := xattr.Get(path, xattr.MakeKey(xattr.KeySize))
	if err != nil {
		return "", false
	}
	size, err := strconv.ParseInt(string(sizeBytes), 10, 64)
	if err != nil || size != info.Size() {
		return "", false
	}

	raw, err := xattr.Get(path, xattr.MakeKey(xattr.KeySha256))
	if err != nil {
		return "", false
	}
	dgst, err := godigest.Parse(string(raw))
	if err != nil {
		return "", false
	}

	return dgst, true
}

// cacheDigest tags the file with its digest and the mtime and size it was
// computed against.
func cacheDigest(path string, info os.FileInfo, dgst godigest.Digest) {
	if err := xattr.Set(path, xattr.MakeKey(xattr.KeyMtime), []byte(strconv.FormatInt(info.ModTime().UnixNano(), 10))); err != nil {
		return
	}
	if err := xattr.Set(path, xattr.MakeKey(xattr.KeySize), []byte(strconv.FormatInt(info.Size(), 10))); err != nil {
		return
	}
	if err := xattr.Set(path, xattr.MakeKey(xattr.KeySha256), []byte(dgst.String())); err != nil {
		logrus.Debugf("digest: failed to tag %s: %v", path, err)
	}
}
