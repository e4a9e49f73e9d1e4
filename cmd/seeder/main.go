// Copyright 2025 Poiesic Systems
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

// Seeder generates a sample transcript corpus for exercising ingestion and
// retrieval without real recordings. Each generated file reads like the
// transcript of one consultation episode.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/recallit"
	"github.com/poiesic/recallit/ai/mock"
	"github.com/poiesic/recallit/ingestion"
)

var sentences = []string{
	"好的 今天我們來談談腸胃健康",
	"肚子痛的時候 第一件事是觀察疼痛的位置",
	"腸胃發炎通常會伴隨噁心或腹瀉",
	"多補充水分可以避免脫水",
	"清淡飲食對腸胃恢復很重要",
	"如果症狀持續超過三天 建議就醫檢查",
	"睡眠品質跟腸胃健康其實息息相關",
	"壓力大的時候 胃酸分泌會增加",
	"規律運動可以促進腸道蠕動",
	"益生菌對某些人的消化有幫助",
	"早餐不要吃太油膩的食物",
	"空腹喝咖啡容易刺激胃壁",
	"吃飯細嚼慢嚥可以減輕腸胃負擔",
	"發燒合併腹痛要特別小心",
	"體重突然下降要找出原因",
	"營養均衡比單一補充品更重要",
	"蛋白質攝取要分散在三餐",
	"蔬菜水果的纖維有助於排便",
	"含糖飲料是很多代謝問題的來源",
	"外食族要注意鈉含量",
	"減重的關鍵是熱量赤字加上耐心",
	"快速減肥很容易復胖",
	"肌肉量會影響基礎代謝率",
	"喝水不足會讓人誤以為肚子餓",
	"吃宵夜影響的不只是體重 還有睡眠",
	"血糖穩定對情緒也有幫助",
	"地中海飲食是研究支持度很高的吃法",
	"斷食不適合每一個人 要看身體狀況",
	"運動後的修復餐很重要",
	"足夠的睡眠是減重被低估的因素",
	"久坐一小時就起來活動一下",
	"伸展運動可以改善下背痛",
	"心肺運動每週至少一百五十分鐘",
	"重量訓練對骨質密度有幫助",
	"走路是最容易維持的運動習慣",
}

var (
	outDir    = flag.String("out", "corpus", "directory to write transcript files into")
	fileCount = flag.Int("count", 5, "number of transcript files to generate")
	fileSize  = flag.Int("size", 8000, "approximate characters per transcript")
	seedFile  = flag.String("src", "", "optional file of seed sentences, one per line")
	seed      = flag.Int64("seed", 42, "random seed for reproducible corpora")
	dbPath    = flag.String("db", "", "optionally ingest the corpus into this index using mock embeddings")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}, nil
}

func main() {
	pool := sentences
	if *seedFile != "" {
		lines, err := linesFromFile(*seedFile)
		if err != nil {
			slog.Error("failed to open seed file", "path", *seedFile, "error", err)
			os.Exit(1)
		}
		pool = nil
		for line := range lines {
			pool = append(pool, line)
		}
		if len(pool) == 0 {
			slog.Error("seed file contains no sentences", "path", *seedFile)
			os.Exit(1)
		}
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		slog.Error("failed to create output directory", "path", *outDir, "error", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	for i := 0; i < *fileCount; i++ {
		name := fmt.Sprintf("episode_%03d.txt", i+1)
		path := filepath.Join(*outDir, name)

		var b strings.Builder
		for b.Len() < *fileSize {
			b.WriteString(pool[rng.Intn(len(pool))])
			b.WriteString(" ")
		}

		if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
			slog.Error("failed to write transcript", "path", path, "error", err)
			os.Exit(1)
		}
		slog.Info("wrote transcript", "path", path, "chars", b.Len())
	}

	slog.Info("corpus ready", "dir", *outDir, "files", *fileCount)

	if *dbPath != "" {
		if err := ingestCorpus(*dbPath, *outDir); err != nil {
			slog.Error("failed to ingest corpus", "db", *dbPath, "error", err)
			os.Exit(1)
		}
	}
}

// ingestCorpus indexes the generated files with deterministic mock
// embeddings, enough for smoke testing query and chat locally.
func ingestCorpus(dbPath, corpusDir string) error {
	kb, err := recallit.Open(dbPath, recallit.WithProvider(mock.NewMockProvider()))
	if err != nil {
		return err
	}
	defer kb.Close()

	docs, err := ingestion.LoadCorpus(corpusDir)
	if err != nil {
		return err
	}

	pipeline, err := kb.NewIngestionPipeline()
	if err != nil {
		return err
	}

	results, err := pipeline.IngestAll(context.Background(), docs)
	if err != nil {
		return err
	}
	for _, result := range results {
		if result.Err != nil {
			return fmt.Errorf("document %s: %w", result.DocumentID, result.Err)
		}
	}

	slog.Info("corpus ingested", "db", dbPath, "documents", len(results))
	return nil
}
