package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskboard/internal/models"
)

const (
	// DefaultMongoDatabase is the database holding the employees collection.
	DefaultMongoDatabase = "taskboard"

	employeesCollection = "employees"
	mongoConnectTimeout = 5 * time.Second
)

// MongoStore implements the Store interface on a MongoDB collection with one
// document per employee. It holds no client between calls: every operation
// connects, runs one command and disconnects.
type MongoStore struct {
	uri      string
	database string
}

// NewMongoStore creates a store for the given connection string and database.
func NewMongoStore(uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		database = DefaultMongoDatabase
	}
	return &MongoStore{uri: uri, database: database}, nil
}

// Close is a no-op; connections never outlive a single operation.
func (s *MongoStore) Close() error {
	return nil
}

func (s *MongoStore) withCollection(ctx context.Context, op string, fn func(*mongo.Collection) error) error {
	opts := options.Client().
		ApplyURI(s.uri).
		SetConnectTimeout(mongoConnectTimeout).
		SetServerSelectionTimeout(mongoConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return unavailable(op, err)
	}
	defer client.Disconnect(context.WithoutCancel(ctx))

	return fn(client.Database(s.database).Collection(employeesCollection))
}

// GetEmployee retrieves an employee document by id.
func (s *MongoStore) GetEmployee(ctx context.Context, empID int64) (*models.Employee, error) {
	emp := &models.Employee{}
	err := s.withCollection(ctx, "get employee", func(c *mongo.Collection) error {
		return findOne(ctx, c, empID, emp, nil)
	})
	if err != nil {
		return nil, err
	}
	return emp, nil
}

// GetLists retrieves the todo and done lists for an employee.
func (s *MongoStore) GetLists(ctx context.Context, empID int64) (models.TaskLists, error) {
	var lists models.TaskLists
	err := s.withCollection(ctx, "get lists", func(c *mongo.Collection) error {
		projection := bson.M{"todo": 1, "done": 1, "_id": 0}
		return findOne(ctx, c, empID, &lists, projection)
	})
	return lists.Normalize(), err
}

// ReplaceLists overwrites both lists with one $set.
func (s *MongoStore) ReplaceLists(ctx context.Context, empID int64, todo, done []models.Task) error {
	lists := models.TaskLists{Todo: todo, Done: done}.Normalize()
	return s.withCollection(ctx, "replace lists", func(c *mongo.Collection) error {
		return updateOne(ctx, c, empID, bson.M{"$set": bson.M{"todo": lists.Todo, "done": lists.Done}})
	})
}

// AppendTodo pushes a task onto the tail of the todo list.
func (s *MongoStore) AppendTodo(ctx context.Context, empID int64, task models.Task) error {
	return s.withCollection(ctx, "append todo", func(c *mongo.Collection) error {
		return updateOne(ctx, c, empID, bson.M{"$push": bson.M{"todo": task}})
	})
}

// RemoveByID pulls the task from both lists. A missing task is not an error.
func (s *MongoStore) RemoveByID(ctx context.Context, empID int64, taskID string) error {
	return s.withCollection(ctx, "remove task", func(c *mongo.Collection) error {
		return updateOne(ctx, c, empID, bson.M{"$pull": bson.M{
			"todo": bson.M{"id": taskID},
			"done": bson.M{"id": taskID},
		}})
	})
}

func findOne(ctx context.Context, c *mongo.Collection, empID int64, out any, projection any) error {
	opts := options.FindOne()
	if projection != nil {
		opts.SetProjection(projection)
	}

	err := c.FindOne(ctx, bson.M{"empId": empID}, opts).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return notFound(empID)
		}
		return unavailable("find employee", err)
	}
	return nil
}

func updateOne(ctx context.Context, c *mongo.Collection, empID int64, update bson.M) error {
	result, err := c.UpdateOne(ctx, bson.M{"empId": empID}, update)
	if err != nil {
		if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
			return unavailable("update employee", err)
		}
		return fmt.Errorf("failed to update employee: %w", err)
	}
	if result.MatchedCount == 0 {
		return notFound(empID)
	}
	return nil
}
