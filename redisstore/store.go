package redisstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/tokenvault"
	"github.com/MrEthical07/tokenvault/token"
)

const recordVersionV1 = 1

// consumeLua atomically performs GET→validate→DEL on a token record and
// removes the key from its owner index.
// KEYS[1] = record key
// ARGV[1] = expected kind (byte as int string)
// ARGV[2] = key prefix
//
// Returns:
//
//	record bytes on success
//	error string: "not_found", "kind_mismatch"
var consumeLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

-- Binary layout: version(1) kind(1) revoked(1) expiresAt(8 big-endian) ownerIDLen(2 big-endian) ownerID
local version = string.byte(data, 1)
if version ~= 1 then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local kind = string.byte(data, 2)
if kind ~= tonumber(ARGV[1]) then
  return {err='kind_mismatch'}
end

local revoked = string.byte(data, 3)
if revoked ~= 0 then
  return {err='not_found'}
end

redis.call('DEL', KEYS[1])

local idLen = string.byte(data, 12) * 256 + string.byte(data, 13)
local ownerID = string.sub(data, 14, 13 + idLen)
redis.call('SREM', ARGV[2] .. ':owner:' .. ownerID .. ':' .. kind, KEYS[1])

return data
`)

// revokeLua flips the revoked byte in place, preserving the remaining TTL.
// KEYS[1] = record key
//
// Returns 1 on success, error string "not_found" otherwise.
var revokeLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end
if string.byte(data, 1) ~= 1 then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local ttlMs = redis.call('PTTL', KEYS[1])
if ttlMs <= 0 then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local newData = string.sub(data, 1, 2) .. string.char(1) .. string.sub(data, 4)
redis.call('SET', KEYS[1], newData, 'PX', ttlMs)
return 1
`)

// Store implements tokenvault.Store on a Redis keyspace.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

var _ tokenvault.Store = (*Store)(nil)

// New wraps an existing client. An empty prefix defaults to "tkv".
func New(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "tkv"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

// key derives the record key from the token string. Hashing keeps raw token
// material out of the keyspace.
func (s *Store) key(tokenStr string) string {
	sum := sha256.Sum256([]byte(tokenStr))
	return s.prefix + ":" + hex.EncodeToString(sum[:])
}

// ownerKey must build the same string the Lua scripts build: the kind is its
// raw byte value in decimal, not its name.
func (s *Store) ownerKey(ownerID string, kind tokenvault.TokenKind) string {
	return fmt.Sprintf("%s:owner:%s:%d", s.prefix, ownerID, uint8(kind))
}

// Save inserts the record with a TTL running to its expiry. SET NX turns a
// replayed insert into ErrDuplicateToken.
func (s *Store) Save(ctx context.Context, record tokenvault.TokenRecord) error {
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		// Already expired; a key with no TTL would linger forever.
		return nil
	}

	encoded, err := encodeRecord(record)
	if err != nil {
		return err
	}

	key := s.key(record.Token)
	ok, err := s.redis.SetNX(ctx, key, encoded, ttl).Result()
	if err != nil {
		return storeError("set token", err)
	}
	if !ok {
		return tokenvault.ErrDuplicateToken
	}

	// The index set carries no TTL of its own: members outliving their
	// record keys are pruned by DeleteExpired, and Redis removes the set
	// once its last member goes.
	if err := s.redis.SAdd(ctx, s.ownerKey(record.OwnerID, record.Kind), key).Err(); err != nil {
		return storeError("index token", err)
	}
	return nil
}

// FindActive returns the record iff it exists for the kind and is not
// revoked.
func (s *Store) FindActive(ctx context.Context, tokenStr string, kind tokenvault.TokenKind) (tokenvault.TokenRecord, error) {
	data, err := s.redis.Get(ctx, s.key(tokenStr)).Bytes()
	if errors.Is(err, redis.Nil) {
		return tokenvault.TokenRecord{}, tokenvault.ErrTokenNotFound
	}
	if err != nil {
		return tokenvault.TokenRecord{}, storeError("get token", err)
	}

	record, err := decodeRecord(data, tokenStr)
	if err != nil {
		return tokenvault.TokenRecord{}, err
	}
	if record.Kind != kind || record.Revoked {
		return tokenvault.TokenRecord{}, tokenvault.ErrTokenNotFound
	}
	return record, nil
}

// Revoke flips the revoked byte under the existing TTL. Repeat revocations
// find the record again and succeed.
func (s *Store) Revoke(ctx context.Context, tokenStr string) error {
	err := revokeLua.Run(ctx, s.redis, []string{s.key(tokenStr)}).Err()
	if err == nil {
		return nil
	}
	if err.Error() == "not_found" {
		return tokenvault.ErrTokenNotFound
	}
	return storeError("revoke token", err)
}

// ConsumeAndDelete removes and returns the matching non-revoked record. The
// Lua script runs GET, validate, and DEL as one unit, so only one of any
// number of concurrent consumers gets the record back.
func (s *Store) ConsumeAndDelete(ctx context.Context, tokenStr string, kind tokenvault.TokenKind) (tokenvault.TokenRecord, error) {
	result, err := consumeLua.Run(ctx, s.redis,
		[]string{s.key(tokenStr)},
		int(uint8(kind)),
		s.prefix,
	).Result()
	if err != nil {
		switch err.Error() {
		case "not_found", "kind_mismatch":
			return tokenvault.TokenRecord{}, tokenvault.ErrTokenNotFound
		default:
			return tokenvault.TokenRecord{}, storeError("consume token", err)
		}
	}

	data, ok := result.(string)
	if !ok {
		return tokenvault.TokenRecord{}, fmt.Errorf("%w: unexpected lua result type", tokenvault.ErrStoreUnavailable)
	}
	return decodeRecord([]byte(data), tokenStr)
}

// RevokeAllForOwner revokes every indexed record for (ownerID, kind).
// Members whose keys already expired are skipped.
func (s *Store) RevokeAllForOwner(ctx context.Context, ownerID string, kind tokenvault.TokenKind) error {
	keys, err := s.redis.SMembers(ctx, s.ownerKey(ownerID, kind)).Result()
	if err != nil {
		return storeError("list owner tokens", err)
	}

	for _, key := range keys {
		err := revokeLua.Run(ctx, s.redis, []string{key}).Err()
		if err == nil || err.Error() == "not_found" {
			continue
		}
		return storeError("revoke owner token", err)
	}
	return nil
}

// DeleteExpired prunes owner index entries whose record keys already
// expired. Redis reaps the records themselves through their TTLs; only the
// dangling set members need help.
func (s *Store) DeleteExpired(ctx context.Context, _ time.Time) (int64, error) {
	var pruned int64
	var cursor uint64
	pattern := s.prefix + ":owner:*"

	for {
		setKeys, next, err := s.redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return pruned, storeError("scan owner indexes", err)
		}

		for _, setKey := range setKeys {
			members, err := s.redis.SMembers(ctx, setKey).Result()
			if err != nil {
				return pruned, storeError("list owner index", err)
			}
			for _, member := range members {
				exists, err := s.redis.Exists(ctx, member).Result()
				if err != nil {
					return pruned, storeError("check token key", err)
				}
				if exists == 0 {
					if err := s.redis.SRem(ctx, setKey, member).Err(); err != nil {
						return pruned, storeError("prune owner index", err)
					}
					pruned++
				}
			}
		}

		cursor = next
		if cursor == 0 {
			return pruned, nil
		}
	}
}

func encodeRecord(record tokenvault.TokenRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordVersionV1)
	buf.WriteByte(byte(record.Kind))
	if record.Revoked {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt.Unix()); err != nil {
		return nil, err
	}

	if len(record.OwnerID) > 65535 {
		return nil, errors.New("token record owner id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.OwnerID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.OwnerID)

	return buf.Bytes(), nil
}

func decodeRecord(data []byte, tokenStr string) (tokenvault.TokenRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return tokenvault.TokenRecord{}, decodeError(err)
	}
	if version != recordVersionV1 {
		return tokenvault.TokenRecord{}, decodeError(errors.New("invalid record version"))
	}

	kindByte, err := reader.ReadByte()
	if err != nil {
		return tokenvault.TokenRecord{}, decodeError(err)
	}
	kind := token.Kind(kindByte)
	if !kind.Persisted() {
		return tokenvault.TokenRecord{}, decodeError(errors.New("invalid record kind"))
	}

	revokedByte, err := reader.ReadByte()
	if err != nil {
		return tokenvault.TokenRecord{}, decodeError(err)
	}

	var expiresUnix int64
	if err := binary.Read(reader, binary.BigEndian, &expiresUnix); err != nil {
		return tokenvault.TokenRecord{}, decodeError(err)
	}

	var ownerIDLen uint16
	if err := binary.Read(reader, binary.BigEndian, &ownerIDLen); err != nil {
		return tokenvault.TokenRecord{}, decodeError(err)
	}
	ownerID := make([]byte, ownerIDLen)
	if _, err := io.ReadFull(reader, ownerID); err != nil {
		return tokenvault.TokenRecord{}, decodeError(err)
	}

	return tokenvault.TokenRecord{
		Token:     tokenStr,
		OwnerID:   string(ownerID),
		Kind:      kind,
		ExpiresAt: time.Unix(expiresUnix, 0).UTC(),
		Revoked:   revokedByte != 0,
	}, nil
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", tokenvault.ErrStoreUnavailable, op, err)
}

func decodeError(err error) error {
	return fmt.Errorf("%w: decode record: %w", tokenvault.ErrStoreUnavailable, err)
}
