// redis_store_test.go

package store

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// TestListRuleFiles checks that only documents of the requested kind are listed.
func TestListRuleFiles(t *testing.T) {
	// Start a mock Redis server
	s, err := miniredis.Run()
	assert.NoError(t, err)
	defer s.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	store := &RedisStore{client: redisClient}

	s.Set("sysmon:default", "{}")
	s.Set("sysmon:workstations", "{}")
	s.Set("sysmon:servers:dc", "{}")
	s.Set("yarax:my_rule", "{}")
	s.Set("unrelated", "1")

	names, err := store.ListRuleFiles(KindSysmon)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"default", "workstations", "servers:dc"}, names)

	names, err = store.ListRuleFiles(KindYaraX)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"my_rule"}, names)
}

// TestListRuleFilesEmpty checks that an empty store lists nothing.
func TestListRuleFilesEmpty(t *testing.T) {
	s, err := miniredis.Run()
	assert.NoError(t, err)
	defer s.Close()

	store := &RedisStore{client: redis.NewClient(&redis.Options{Addr: s.Addr()})}

	names, err := store.ListRuleFiles(KindYaraX)
	assert.NoError(t, err)
	assert.Empty(t, names)
}

// TestListRuleFilesManyKeys walks more keys than one SCAN batch returns.
func TestListRuleFilesManyKeys(t *testing.T) {
	s, err := miniredis.Run()
	assert.NoError(t, err)
	defer s.Close()

	store := &RedisStore{client: redis.NewClient(&redis.Options{Addr: s.Addr()})}

	for i := 0; i < 250; i++ {
		s.Set(DocumentKey(KindYaraX, "rule_"+string(rune('a'+i%26))+string(rune('a'+i/26))), "{}")
	}

	names, err := store.ListRuleFiles(KindYaraX)
	assert.NoError(t, err)
	assert.Len(t, names, 250)
}
