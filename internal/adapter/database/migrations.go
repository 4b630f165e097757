package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sourceEntities = "entities"
	sourceFile     = "file"
)

// SchemaChange é uma entrada do histórico de schema: um conjunto de entidades
// sincronizado por AutoMigrate ou um arquivo SQL aplicado
type SchemaChange struct {
	Version   string    `gorm:"primaryKey;size:64"`
	Source    string    `gorm:"size:16;not null;index"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// TableName define o nome da tabela
func (SchemaChange) TableName() string {
	return "schema_migrations"
}

// Migrator sincroniza as entidades e aplica os arquivos VERSAO_nome.sql do diretório
type Migrator struct {
	db     *gorm.DB
	logger *zap.Logger
	dir    string
	now    func() time.Time
}

// NewMigrator cria o migrador; db pode ser nil quando só CreateMigration é usado
func NewMigrator(db *gorm.DB, logger *zap.Logger, dir string) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
		dir:    dir,
		now:    time.Now,
	}
}

// Run aplica AutoMigrate nas entidades e depois os arquivos pendentes
func (m *Migrator) Run(ctx context.Context, entities ...interface{}) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&SchemaChange{}); err != nil {
		return fmt.Errorf("falha ao criar tabela de migrações: %w", err)
	}

	var history []SchemaChange
	if err := m.db.WithContext(ctx).Find(&history).Error; err != nil {
		return fmt.Errorf("falha ao buscar migrações aplicadas: %w", err)
	}
	applied := make(map[string]SchemaChange, len(history))
	for _, change := range history {
		applied[change.Version] = change
	}

	if err := m.syncEntities(ctx, applied, entities); err != nil {
		return err
	}
	return m.applyFiles(ctx, applied)
}

// syncEntities registra uma entrada nova sempre que tabelas ou colunas das entidades mudam
func (m *Migrator) syncEntities(ctx context.Context, applied map[string]SchemaChange, entities []interface{}) error {
	ctx, span := startSpan(ctx, "migrate.entities", "automigrate", "schema_migrations",
		attribute.Int("migration.entities", len(entities)))
	defer span.End()

	if err := m.db.WithContext(ctx).AutoMigrate(entities...); err != nil {
		spanError(span, "automigrate failed", err)
		return fmt.Errorf("falha ao aplicar auto migração: %w", err)
	}

	tables, fingerprint, err := m.fingerprint(entities)
	if err != nil {
		spanError(span, "schema parse failed", err)
		return err
	}

	version := sourceEntities + "-" + fingerprint[:12]
	if _, ok := applied[version]; ok {
		return nil
	}

	change := SchemaChange{
		Version:   version,
		Source:    sourceEntities,
		Name:      strings.Join(tables, ","),
		Checksum:  fingerprint,
		AppliedAt: m.now().UTC(),
	}
	if err := m.db.WithContext(ctx).Create(&change).Error; err != nil {
		spanError(span, "record failed", err)
		return fmt.Errorf("falha ao registrar schema das entidades: %w", err)
	}

	m.logger.Info("schema das entidades sincronizado",
		zap.String("version", version),
		zap.Strings("tables", tables))
	return nil
}

// fingerprint resume tabelas e colunas das entidades em um sha256 estável
func (m *Migrator) fingerprint(entities []interface{}) ([]string, string, error) {
	tables := make([]string, 0, len(entities))
	lines := make([]string, 0, len(entities))

	for _, entity := range entities {
		stmt := &gorm.Statement{DB: m.db}
		if err := stmt.Parse(entity); err != nil {
			return nil, "", fmt.Errorf("falha ao analisar entidade %T: %w", entity, err)
		}

		columns := make([]string, 0, len(stmt.Schema.Fields))
		for _, field := range stmt.Schema.Fields {
			if field.DBName != "" {
				columns = append(columns, field.DBName)
			}
		}
		sort.Strings(columns)

		tables = append(tables, stmt.Schema.Table)
		lines = append(lines, stmt.Schema.Table+":"+strings.Join(columns, ","))
	}
	sort.Strings(tables)
	sort.Strings(lines)

	return tables, checksum([]byte(strings.Join(lines, "\n"))), nil
}

type migrationFile struct {
	version string
	name    string
	path    string
}

func (m *Migrator) applyFiles(ctx context.Context, applied map[string]SchemaChange) error {
	files, err := m.pendingCandidates()
	if err != nil {
		return fmt.Errorf("falha ao listar arquivos de migração: %w", err)
	}

	for _, file := range files {
		content, err := os.ReadFile(file.path)
		if err != nil {
			return fmt.Errorf("falha ao ler %s: %w", file.path, err)
		}
		sum := checksum(content)

		if prev, ok := applied[file.version]; ok {
			if prev.Checksum != sum {
				m.logger.Warn("arquivo de migração alterado depois de aplicado; ignorando",
					zap.String("version", file.version),
					zap.String("file", file.path))
			}
			continue
		}

		if err := m.applyFile(ctx, file, content, sum); err != nil {
			return err
		}
	}
	return nil
}

// applyFile executa os comandos do arquivo e registra a versão na mesma transação
func (m *Migrator) applyFile(ctx context.Context, file migrationFile, content []byte, sum string) error {
	ctx, span := startSpan(ctx, "migrate.file", "migrate", "schema_migrations",
		attribute.String("migration.version", file.version),
		attribute.String("migration.name", file.name))
	defer span.End()

	m.logger.Info("aplicando migração", zap.String("version", file.version), zap.String("name", file.name))

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range statements(string(content)) {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("comando falhou: %w", err)
			}
		}
		return tx.Create(&SchemaChange{
			Version:   file.version,
			Source:    sourceFile,
			Name:      file.name,
			Checksum:  sum,
			AppliedAt: m.now().UTC(),
		}).Error
	})
	if err != nil {
		spanError(span, "migration failed", err)
		return fmt.Errorf("falha na migração %s_%s: %w", file.version, file.name, err)
	}
	return nil
}

// pendingCandidates lista os arquivos em ordem de versão; diretório ausente não é erro
func (m *Migrator) pendingCandidates() ([]migrationFile, error) {
	if m.dir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, fs.ErrNotExist) {
		m.logger.Info("diretório de migrações não encontrado", zap.String("dir", m.dir))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []migrationFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		version, name, ok := strings.Cut(strings.TrimSuffix(entry.Name(), ".sql"), "_")
		if _, err := strconv.ParseUint(version, 10, 64); !ok || err != nil {
			m.logger.Warn("nome de migração fora do padrão VERSAO_nome.sql", zap.String("file", entry.Name()))
			continue
		}
		files = append(files, migrationFile{
			version: version,
			name:    name,
			path:    filepath.Join(m.dir, entry.Name()),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if len(files[i].version) != len(files[j].version) {
			return len(files[i].version) < len(files[j].version)
		}
		return files[i].version < files[j].version
	})
	return files, nil
}

// statements remove linhas de comentário e separa por ';'.
// Literais contendo ';' não são suportados.
func statements(sql string) []string {
	var kept []string
	for _, line := range strings.Split(sql, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			kept = append(kept, line)
		}
	}

	var out []string
	for _, stmt := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

const migrationTemplate = `-- %s
-- Comandos separados por ';', executados em uma única transação.
-- Um arquivo já aplicado não deve ser editado: crie outra migração.

`

// CreateMigration grava um arquivo vazio com a versão atual em UTC
func (m *Migrator) CreateMigration(name string) (string, error) {
	slug := strings.ToLower(strings.Join(strings.Fields(name), "_"))
	if slug == "" {
		return "", errors.New("nome da migração é obrigatório")
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("falha ao criar diretório: %w", err)
	}

	path := filepath.Join(m.dir, m.now().UTC().Format("20060102150405")+"_"+slug+".sql")
	if err := os.WriteFile(path, []byte(fmt.Sprintf(migrationTemplate, name)), 0o644); err != nil {
		return "", fmt.Errorf("falha ao criar arquivo: %w", err)
	}
	return path, nil
}
