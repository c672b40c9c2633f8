// forge/pkg/store/store.go

package store

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

// Kind separates Sysmon and YARA-X documents. It is the key prefix and the
// channel document updates are published on.
type Kind string

const (
	KindSysmon Kind = "sysmon"
	KindYaraX  Kind = "yarax"
)

func (k Kind) Valid() bool {
	return k == KindSysmon || k == KindYaraX
}

var (
	ErrDocumentNotFound = errors.New("rule document not found")
	ErrInvalidKind      = errors.New("unknown rule document kind")
)

// RuleFile is a rendered rule document as persisted by the host.
type RuleFile struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"required"`
	Kind      Kind   `json:"kind" validate:"oneof=sysmon yarax"`
	Content   string `json:"content"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Key is the storage key, "<kind>:<name>".
func (f RuleFile) Key() string {
	return DocumentKey(f.Kind, f.Name)
}

func DocumentKey(kind Kind, name string) string {
	return string(kind) + ":" + name
}

type Store interface {
	SaveRuleFile(f RuleFile) error
	SaveAndPublishRuleFile(f RuleFile) error
	GetRuleFile(kind Kind, name string) (*RuleFile, error)
	MGetRuleFiles(kind Kind, names ...string) (map[string]*RuleFile, error)
	ListRuleFiles(kind Kind) ([]string, error)
	DeleteRuleFile(kind Kind, name string) error
	PublishFragment(channel, fragment string) error
	Subscribe(channels ...string) *redis.PubSub
}
