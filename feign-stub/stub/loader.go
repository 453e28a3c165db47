// Copyright (c) 2026 Palantir Technologies. All rights reserved.
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

package stub

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	werror "github.com/palantir/witchcraft-go-error"
	"gopkg.in/yaml.v2"
)

// IsContractFile reports whether name has a contract file extension.
func IsContractFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".yml", ".yaml", ".json":
		return true
	}
	return false
}

// Load reads every contract file in fsys. Files are read in lexical path order and YAML files may hold several
// documents, so declaration order is path order then document order. A contract without a name is named after its
// file and position. Any unreadable or invalid file fails the load.
func Load(fsys fs.FS) ([]Contract, error) {
	var paths []string
	if err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsContractFile(p) {
			paths = append(paths, p)
		}
		return nil
	}); err != nil {
		return nil, werror.Wrap(err, "failed to walk contract directory")
	}
	sort.Strings(paths)

	var contracts []Contract
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, werror.Wrap(err, "failed to read contract file", werror.SafeParam("file", p))
		}
		fileContracts, err := parseContracts(p, data)
		if err != nil {
			return nil, werror.Wrap(err, "failed to parse contract file", werror.SafeParam("file", p))
		}
		contracts = append(contracts, fileContracts...)
	}
	return contracts, nil
}

// LoadDir reads contracts from a directory on disk.
func LoadDir(dir string) ([]Contract, error) {
	return Load(os.DirFS(dir))
}

func parseContracts(name string, data []byte) ([]Contract, error) {
	var contracts []Contract
	if strings.EqualFold(path.Ext(name), ".json") {
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := codecs.JSON.Unmarshal(trimmed, &contracts); err != nil {
				return nil, err
			}
		} else {
			var c Contract
			if err := codecs.JSON.Unmarshal(trimmed, &c); err != nil {
				return nil, err
			}
			contracts = append(contracts, c)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		for {
			var c *Contract
			err := dec.Decode(&c)
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			if c != nil {
				contracts = append(contracts, *c)
			}
		}
	}
	base := strings.TrimSuffix(name, path.Ext(name))
	for i := range contracts {
		if contracts[i].Name != "" {
			continue
		}
		contracts[i].Name = base
		if len(contracts) > 1 {
			contracts[i].Name = base + "#" + strconv.Itoa(i)
		}
	}
	return contracts, nil
}
