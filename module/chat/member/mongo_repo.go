package member

import (
	chatmodel "ChatCore/module/chat/model"
	"ChatCore/tools/errs"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	m := chatmodel.Membership{}
	return &MongoRepository{coll: db.Collection(m.GetTableName())}
}

// EnsureIndexes PK(chat_id, member_id) + member_id 查询索引
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: chatmodel.MembershipFieldChatID, Value: 1},
				{Key: chatmodel.MembershipFieldMemberID, Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uk_chat_member"),
		},
		{
			Keys:    bson.D{{Key: chatmodel.MembershipFieldMemberID, Value: 1}},
			Options: options.Index().SetName("idx_member"),
		},
	})
	return errs.Wrap(err)
}

func (r *MongoRepository) Upsert(ctx context.Context, m *chatmodel.Membership) error {
	joined := m.JoinedAt
	if joined.IsZero() {
		joined = time.Now()
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{chatmodel.MembershipFieldChatID: m.ChatID,
			chatmodel.MembershipFieldMemberID: m.MemberID},
		bson.M{
			"$setOnInsert": bson.M{
				chatmodel.MembershipFieldLastReadSeq: int64(0),
				chatmodel.MembershipFieldJoinedAt:    joined,
			},
			"$set": bson.M{chatmodel.MembershipFieldRole: m.Role},
		},
		options.Update().SetUpsert(true),
	)
	return errs.Wrap(err)
}

func (r *MongoRepository) Remove(ctx context.Context, chatID, memberID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{
		chatmodel.MembershipFieldChatID:   chatID,
		chatmodel.MembershipFieldMemberID: memberID,
	})
	return errs.Wrap(err)
}

func (r *MongoRepository) Get(ctx context.Context, chatID, memberID string) (*chatmodel.Membership, error) {
	var out chatmodel.Membership
	err := r.coll.FindOne(ctx, bson.M{
		chatmodel.MembershipFieldChatID:   chatID,
		chatmodel.MembershipFieldMemberID: memberID,
	}).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, errs.ErrRecordNotFound.WrapMsg("membership", "chatID", chatID, "memberID", memberID)
	}
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &out, nil
}

func (r *MongoRepository) ListByChat(ctx context.Context, chatID string) ([]chatmodel.Membership, error) {
	cur, err := r.coll.Find(ctx, bson.M{chatmodel.MembershipFieldChatID: chatID})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []chatmodel.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

func (r *MongoRepository) ListByMember(ctx context.Context, memberID string) ([]chatmodel.Membership, error) {
	cur, err := r.coll.Find(ctx, bson.M{chatmodel.MembershipFieldMemberID: memberID})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []chatmodel.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

// AdvanceReadSeq $max 在存储端一把完成，乱序 ack 不会把游标拉低
func (r *MongoRepository) AdvanceReadSeq(ctx context.Context, chatID, memberID string, seq int64) (int64, error) {
	res := r.coll.FindOneAndUpdate(ctx,
		bson.M{chatmodel.MembershipFieldChatID: chatID,
			chatmodel.MembershipFieldMemberID: memberID},
		bson.M{"$max": bson.M{chatmodel.MembershipFieldLastReadSeq: seq}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var out chatmodel.Membership
	if err := res.Decode(&out); err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, errs.ErrRecordNotFound.WrapMsg("membership", "chatID", chatID, "memberID", memberID)
		}
		return 0, errs.Wrap(err)
	}
	return out.LastReadSeq, nil
}
