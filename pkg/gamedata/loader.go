package gamedata

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	getter "github.com/hashicorp/go-getter"
	jsoniter "github.com/json-iterator/go"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// BlocksFile is the block definition file inside a data pack directory.
const BlocksFile = "blocks.yaml"

//go:embed schema/blocks.schema.json
var blocksSchemaSource string

var blocksSchema = jsonschema.MustCompileString("blocks.schema.json", blocksSchemaSource)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type blocksDoc struct {
	Blocks []Block `yaml:"blocks"`
}

// Load reads and validates the data pack in dir.
func Load(dir string) (*GameData, error) {
	path := filepath.Join(dir, BlocksFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := validate(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var doc blocksDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	gd, err := New(doc.Blocks)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return gd, nil
}

// validate checks a YAML document against the block schema. The document is
// round-tripped through JSON so the validator sees plain JSON values.
func validate(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert to json: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("convert to json: %w", err)
	}
	if err := blocksSchema.Validate(v); err != nil {
		return fmt.Errorf("invalid block definitions: %w", err)
	}
	return nil
}

// Fetch downloads a data pack from src (any go-getter address) into dst.
func Fetch(ctx context.Context, src, dst string) error {
	pwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working dir: %w", err)
	}
	client := &getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Mode: getter.ClientModeAny,
	}
	if err := client.Get(); err != nil {
		return fmt.Errorf("fetch %s: %w", src, err)
	}
	return nil
}
