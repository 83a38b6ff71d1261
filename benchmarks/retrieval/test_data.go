// ABOUTME: Benchmark scenarios for retrieval quality: a fixture repository plus labelled queries
// ABOUTME: Scenarios can also be loaded from a YAML file to benchmark a real repository
package retrieval

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TestScenario is one labelled retrieval query
type TestScenario struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
	Query       string `yaml:"query" json:"query"`
	K           int    `yaml:"k" json:"k"`

	// Vocabulary runs the topic aggregator instead of a single query
	Vocabulary string `yaml:"vocabulary" json:"vocabulary,omitempty"`

	GroundTruth GroundTruth `yaml:"groundTruth" json:"ground_truth"`
}

// GroundTruth lists the files a good retrieval must and must not surface
type GroundTruth struct {
	ExpectedFiles  []string `yaml:"expectedFiles" json:"expected_files"`
	ForbiddenFiles []string `yaml:"forbiddenFiles" json:"forbidden_files,omitempty"`
}

// TestResult is the outcome of one scenario
type TestResult struct {
	TestID             string         `json:"test_id"`
	TestName           string         `json:"test_name"`
	ContextRecallScore float64        `json:"context_recall"`
	PrecisionScore     float64        `json:"precision_at_k"`
	OverallScore       float64        `json:"overall"`
	Status             string         `json:"status"`
	Details            map[string]any `json:"details,omitempty"`
	ErrorMessage       string         `json:"error,omitempty"`
}

type scenarioFile struct {
	Scenarios []TestScenario `yaml:"scenarios"`
}

// LoadScenarios reads labelled scenarios from a YAML (or JSON) file
func LoadScenarios(path string) ([]TestScenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}
	var f scenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios %s: %w", path, err)
	}
	for i, s := range f.Scenarios {
		if s.ID == "" {
			return nil, fmt.Errorf("scenario %d: missing id", i)
		}
		if s.Query == "" && s.Vocabulary == "" {
			return nil, fmt.Errorf("scenario %s: needs a query or a vocabulary", s.ID)
		}
		if len(s.GroundTruth.ExpectedFiles) == 0 {
			return nil, fmt.Errorf("scenario %s: no expected files", s.ID)
		}
	}
	return f.Scenarios, nil
}

// FixtureRepo is a small repository whose files each own one concern
func FixtureRepo() map[string]string {
	return map[string]string{
		"src/cache/redis_cache.ts": `import { createClient } from "redis";

const client = createClient({ url: process.env.REDIS_URL });

// Read-through cache with a TTL in seconds
export async function cached<T>(key: string, ttl: number, load: () => Promise<T>): Promise<T> {
  const hit = await client.get(key);
  if (hit) return JSON.parse(hit) as T;
  const value = await load();
  await client.set(key, JSON.stringify(value), { EX: ttl });
  return value;
}

export async function invalidate(key: string): Promise<void> {
  await client.del(key);
}
`,
		"src/cache/memo.ts": `// In-memory memoization with LRU eviction
const lru = new Map<string, unknown>();
const MAX_ENTRIES = 500;

export function memoize<T>(key: string, compute: () => T): T {
  if (lru.has(key)) {
    const v = lru.get(key) as T;
    lru.delete(key);
    lru.set(key, v);
    return v;
  }
  const v = compute();
  lru.set(key, v);
  if (lru.size > MAX_ENTRIES) lru.delete(lru.keys().next().value as string);
  return v;
}
`,
		"src/auth/session.ts": `import jwt from "jsonwebtoken";

export function issueToken(userId: string): string {
  return jwt.sign({ sub: userId }, process.env.JWT_SECRET!, { expiresIn: "1h" });
}

export function verifyToken(token: string): string | null {
  try {
    const claims = jwt.verify(token, process.env.JWT_SECRET!) as { sub: string };
    return claims.sub;
  } catch {
    return null;
  }
}
`,
		"src/auth/password.ts": `import bcrypt from "bcrypt";

export async function hashPassword(plain: string): Promise<string> {
  return bcrypt.hash(plain, 12);
}

export async function checkPassword(plain: string, hash: string): Promise<boolean> {
  return bcrypt.compare(plain, hash);
}
`,
		"src/db/users.go": `package db

import "database/sql"

// FindUser loads a user row by email
func FindUser(conn *sql.DB, email string) (*User, error) {
	row := conn.QueryRow("SELECT id, email FROM users WHERE email = $1", email)
	var u User
	if err := row.Scan(&u.ID, &u.Email); err != nil {
		return nil, err
	}
	return &u, nil
}
`,
		"src/log/logger.py": `import logging

logger = logging.getLogger("app")
handler = logging.StreamHandler()
handler.setFormatter(logging.Formatter("%(asctime)s %(levelname)s %(message)s"))
logger.addHandler(handler)
logger.setLevel(logging.INFO)
`,
		"README.md": `# fixture

A small service with caching, authentication, a user table and logging.
`,
	}
}

// GetAllTests returns the scenarios that run against FixtureRepo
func GetAllTests() []TestScenario {
	return []TestScenario{
		{
			ID:          "cache_ttl",
			Name:        "Cache TTL lookup",
			Description: "Finds where cached values get an expiry",
			Query:       "where do cached values get a ttl and expire from redis",
			K:           3,
			GroundTruth: GroundTruth{
				ExpectedFiles:  []string{"src/cache/redis_cache.ts"},
				ForbiddenFiles: []string{"src/log/logger.py"},
			},
		},
		{
			ID:          "token_verify",
			Name:        "JWT verification",
			Description: "Finds the token verification code",
			Query:       "verify a jwt token and return the user id",
			K:           3,
			GroundTruth: GroundTruth{
				ExpectedFiles: []string{"src/auth/session.ts"},
			},
		},
		{
			ID:          "password_hash",
			Name:        "Password hashing",
			Description: "Finds bcrypt hashing",
			Query:       "hash and compare user passwords with bcrypt",
			K:           3,
			GroundTruth: GroundTruth{
				ExpectedFiles: []string{"src/auth/password.ts"},
			},
		},
		{
			ID:          "caching_topic",
			Name:        "Caching topic files",
			Description: "Runs the caching vocabulary and expects both cache modules",
			Vocabulary:  "caching",
			K:           3,
			GroundTruth: GroundTruth{
				ExpectedFiles: []string{"src/cache/redis_cache.ts", "src/cache/memo.ts"},
			},
		},
	}
}
