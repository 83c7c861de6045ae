package catalog

import "context"

type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]Book, error)
	Get(ctx context.Context, id int64) (Book, bool, error)
	SetStock(ctx context.Context, id int64, stock int) (Book, error)
	Deduct(ctx context.Context, changes []StockChange) error
	Restock(ctx context.Context, changes []StockChange) error
	Seed(ctx context.Context, books []Book) (int, error)
}

func SampleBooks() []Book {
	return []Book{
		{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", Price: 12.99, Genre: "Fiction", Stock: 15,
			Description: "A classic American novel about the Jazz Age and the American Dream."},
		{Title: "To Kill a Mockingbird", Author: "Harper Lee", Price: 14.99, Genre: "Fiction", Stock: 12,
			Description: "A powerful story about racial injustice and the loss of innocence in the American South."},
		{Title: "1984", Author: "George Orwell", Price: 11.99, Genre: "Fiction", Stock: 20,
			Description: "A dystopian novel about totalitarianism and surveillance society."},
		{Title: "Pride and Prejudice", Author: "Jane Austen", Price: 9.99, Genre: "Romance", Stock: 18,
			Description: "A romantic novel of manners about the relationship between Elizabeth Bennet and Mr. Darcy."},
		{Title: "The Hobbit", Author: "J.R.R. Tolkien", Price: 16.99, Genre: "Fantasy", Stock: 10,
			Description: "A fantasy novel about Bilbo Baggins' journey with thirteen dwarves to reclaim their homeland."},
		{Title: "The Catcher in the Rye", Author: "J.D. Salinger", Price: 13.99, Genre: "Fiction", Stock: 14,
			Description: "A coming-of-age story about teenage alienation and loss of innocence."},
		{Title: "Lord of the Flies", Author: "William Golding", Price: 10.99, Genre: "Fiction", Stock: 16,
			Description: "A novel about the dark side of human nature when civilization breaks down."},
		{Title: "Animal Farm", Author: "George Orwell", Price: 8.99, Genre: "Political Fiction", Stock: 22,
			Description: "An allegorical novella about the Russian Revolution and the rise of Stalinism."},
	}
}
