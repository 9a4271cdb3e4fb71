package process

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"inlinesvg/config"
	"inlinesvg/state"
)

// buildOutputPath returns output file path for "src", which is source path
// relative to the original input (just base name when single file was
// requested). Source directory structure is kept unless asked otherwise.
func buildOutputPath(src, dst string, env *state.LocalEnv) string {
	outDir := dst
	if !env.NoDirs {
		outDir = filepath.Join(dst, filepath.Dir(src))
	}
	return filepath.Join(outDir, config.CleanFileName(filepath.Base(src)))
}

// prepareOutput makes sure output file could be written.
func prepareOutput(outputName string, env *state.LocalEnv, log *zap.Logger) error {
	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}
