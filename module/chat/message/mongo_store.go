package message

import (
	chatmodel "ChatCore/module/chat/model"
	"ChatCore/tools/errs"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	m := chatmodel.MessageModel{}
	return &MongoStore{coll: db.Collection(m.GetTableName())}
}

// EnsureIndexes UNIQUE(chat_id, seq) 是发号正确性的落库兜底
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: chatmodel.MessageFieldChatID, Value: 1},
				{Key: chatmodel.MessageFieldSeq, Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uk_chat_seq"),
		},
		{
			Keys:    bson.D{{Key: chatmodel.MessageFieldServerMsgID, Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uk_server_msg_id"),
		},
	})
	return errs.Wrap(err)
}

func (s *MongoStore) Insert(ctx context.Context, m *chatmodel.MessageModel) error {
	_, err := s.coll.InsertOne(ctx, m)
	return errs.Wrap(err)
}

// MaxSeq 倒序取一条，命中 uk_chat_seq 索引
func (s *MongoStore) MaxSeq(ctx context.Context, chatID string) (int64, error) {
	var out chatmodel.MessageModel
	err := s.coll.FindOne(ctx,
		bson.M{chatmodel.MessageFieldChatID: chatID},
		options.FindOne().SetSort(bson.D{{Key: chatmodel.MessageFieldSeq, Value: -1}}),
	).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, errs.Wrap(err)
	}
	return out.Seq, nil
}

func (s *MongoStore) ListRange(ctx context.Context, chatID string, fromSeq, toSeq, limit int64) ([]chatmodel.MessageModel, error) {
	seqCond := bson.M{"$gt": fromSeq}
	if toSeq > 0 {
		seqCond["$lte"] = toSeq
	}
	opts := options.Find().SetSort(bson.D{{Key: chatmodel.MessageFieldSeq, Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.coll.Find(ctx, bson.M{
		chatmodel.MessageFieldChatID: chatID,
		chatmodel.MessageFieldSeq:    seqCond,
	}, opts)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer func() { _ = cur.Close(ctx) }()
	var out []chatmodel.MessageModel
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

func (s *MongoStore) IsDupSeqErr(err error) bool {
	return mongo.IsDuplicateKeyError(errs.Unwrap(err))
}
